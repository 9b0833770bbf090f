// pkg/core/station.go
package core

import "fmt"

// Station is seismic station metadata as returned by a station service.
type Station struct {
	Network   string
	Station   string
	Location  string
	Lat       float64
	Lon       float64
	Elevation float64
	Depth     float64
	Name      string
	Channels  []Channel
}

// Channel is a single sensor component of a station.
type Channel struct {
	Name       string  `json:"name"`
	Azimuth    float64 `json:"azimuth"`
	Dip        float64 `json:"dip"`
	Gain       float64 `json:"gain"`
	SampleRate float64 `json:"sampleRate"`
}

// NSL returns the network.station.location code.
func (s Station) NSL() string {
	return fmt.Sprintf("%s.%s.%s", s.Network, s.Station, s.Location)
}
