package convert

import (
	"testing"
	"time"

	"github.com/seismotools/markereditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCoreToStation(t *testing.T) {
	s := core.Station{
		Network: "GE", Station: "APE", Location: "",
		Lat: 37.07, Lon: 25.53, Elevation: 620, Depth: 0, Name: "Apirathos, Naxos",
		Channels: []core.Channel{{Name: "BHZ", Dip: -90, SampleRate: 20}},
	}

	m := CoreToStation(s)
	assert.Equal(t, "GE.APE.", m.NSL)
	assert.Equal(t, "GE", m.Network)
	assert.Equal(t, 37.07, m.Latitude)
	assert.Equal(t, 25.53, m.Longitude)
	assert.False(t, m.Position.IsEmpty())
	assert.JSONEq(t, `[{"name":"BHZ","azimuth":0,"dip":-90,"gain":0,"sampleRate":20}]`, string(m.Channels))

	back := StationToCore(m)
	assert.Equal(t, s, back)
}

func TestCoreToStation_InvalidCoordinates(t *testing.T) {
	m := CoreToStation(core.Station{Network: "XX", Station: "BAD", Lat: 120, Lon: 0})
	assert.True(t, m.Position.IsEmpty())
	assert.Equal(t, datatypes.JSON("[]"), m.Channels)
}

func TestStationToCore_NoChannels(t *testing.T) {
	s := StationToCore(CoreToStation(core.Station{Network: "GE", Station: "X"}))
	assert.Nil(t, s.Channels)
}

func TestDownloadRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := core.DownloadSummary{
		Time: t0, Site: "geofon", Lat: 10, Lon: 20, MinRadius: 0, MaxRadius: 5,
		Tmin: t0, Tmax: t0.Add(time.Hour), Channels: "BH?",
		Networks: []string{"GE", "II"}, Stations: 4, TotalBytes: 1024,
	}

	m := CoreToDownload(d)
	require.JSONEq(t, `["GE","II"]`, string(m.Networks))
	assert.Equal(t, d, DownloadToCore(m))
}
