package fdsn

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/seismotools/markereditor/pkg/core"
)

// channel level columns of the FDSN text format
const (
	colNetwork = iota
	colStation
	colLocation
	colChannel
	colLatitude
	colLongitude
	colElevation
	colDepth
	colAzimuth
	colDip
	colSensor
	colScale
	colScaleFreq
	colScaleUnits
	colSampleRate
	channelColumns
)

// ParseStationText parses a channel-level FDSN text response. Channels are
// grouped into stations by NSL code; station coordinates come from the first
// channel listed.
func ParseStationText(r io.Reader) ([]core.Station, error) {
	var stations []core.Station
	index := map[string]int{}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) < channelColumns {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, channelColumns, len(fields))
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		nums, err := parseFloats(fields, colLatitude, colLongitude, colElevation, colDepth, colAzimuth, colDip, colScale, colSampleRate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		loc := fields[colLocation]
		if loc == "--" {
			loc = ""
		}
		st := core.Station{
			Network:   fields[colNetwork],
			Station:   fields[colStation],
			Location:  loc,
			Lat:       nums[0],
			Lon:       nums[1],
			Elevation: nums[2],
			Depth:     nums[3],
		}
		ch := core.Channel{
			Name:       fields[colChannel],
			Azimuth:    nums[4],
			Dip:        nums[5],
			Gain:       nums[6],
			SampleRate: nums[7],
		}

		i, ok := index[st.NSL()]
		if !ok {
			i = len(stations)
			index[st.NSL()] = i
			stations = append(stations, st)
		}
		stations[i].Channels = append(stations[i].Channels, ch)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read station text: %w", err)
	}
	return stations, nil
}

// parseFloats parses the given columns; empty columns read as zero.
func parseFloats(fields []string, cols ...int) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, c := range cols {
		if fields[c] == "" {
			continue
		}
		v, err := strconv.ParseFloat(fields[c], 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", c+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// Selection is one line of a dataselect POST request.
type Selection struct {
	Network  string
	Station  string
	Location string
	Channel  string
	Start    time.Time
	End      time.Time
}

// String formats the selection as "NET STA LOC CHA START END". An empty
// location is written as "--".
func (s Selection) String() string {
	loc := s.Location
	if loc == "" {
		loc = "--"
	}
	return fmt.Sprintf("%s %s %s %s %s %s", s.Network, s.Station, loc, s.Channel,
		s.Start.UTC().Format(TimeFormat), s.End.UTC().Format(TimeFormat))
}

// MakeSelection builds one selection per station channel for [tmin, tmax].
func MakeSelection(stations []core.Station, tmin, tmax time.Time) []Selection {
	var out []Selection
	for _, s := range stations {
		for _, ch := range s.Channels {
			out = append(out, Selection{
				Network:  s.Network,
				Station:  s.Station,
				Location: s.Location,
				Channel:  ch.Name,
				Start:    tmin,
				End:      tmax,
			})
		}
	}
	return out
}
