package download

import (
	"bufio"
	"fmt"
	"io"

	"github.com/seismotools/markereditor/pkg/core"
)

// WriteStations writes stations in the plain text station file format: one
// "NET.STA.LOC lat lon elevation depth name" line per station followed by
// one indented "name azimuth dip gain" line per channel.
func WriteStations(w io.Writer, stations []core.Station) error {
	bw := bufio.NewWriter(w)
	for _, s := range stations {
		fmt.Fprintf(bw, "%-15s %14.5f %14.5f %14.1f %14.1f %s\n",
			s.NSL(), s.Lat, s.Lon, s.Elevation, s.Depth, s.Name)
		for _, ch := range s.Channels {
			fmt.Fprintf(bw, "  %5s %14g %14g %14g\n", ch.Name, ch.Azimuth, ch.Dip, ch.Gain)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write stations: %w", err)
	}
	return nil
}
