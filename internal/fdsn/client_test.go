package fdsn

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seismotools/markereditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stationText = `#Network | Station | Location | Channel | Latitude | Longitude | Elevation | Depth | Azimuth | Dip | SensorDescription | Scale | ScaleFreq | ScaleUnits | SampleRate | StartTime | EndTime
GE|APE||BHE|37.0689|25.5306|620.0|0.0|90.0|0.0|STS-2|5.9e+08|1.0|M/S|20.0|2011-01-01T00:00:00|
GE|APE||BHZ|37.0689|25.5306|620.0|0.0|0.0|-90.0|STS-2|5.9e+08|1.0|M/S|20.0|2011-01-01T00:00:00|
II|BFO|00|BHZ|48.3319|8.3311|589.0|0.0|0.0|-90.0|STS-1|3.3e+09|0.05|M/S|20.0|2004-06-01T00:00:00|
`

func TestNew(t *testing.T) {
	c := New("http://localhost:8080/", 0)
	require.NotNil(t, c)
	assert.Equal(t, "http://localhost:8080", c.baseURL, "trailing slash trimmed")
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestSiteURL(t *testing.T) {
	sites := map[string]string{"geofon": "https://geofon.example", "iris": ""}

	u, err := SiteURL(sites, "GEOFON")
	require.NoError(t, err)
	assert.Equal(t, "https://geofon.example", u)

	_, err = SiteURL(sites, "IRIS")
	assert.ErrorIs(t, err, ErrUnknownSite)
	_, err = SiteURL(sites, "orfeus")
	assert.ErrorIs(t, err, ErrUnknownSite)
}

func TestStations_Query(t *testing.T) {
	tmin := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fdsnws/station/1/query", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "10.5", q.Get("latitude"))
		assert.Equal(t, "-20", q.Get("longitude"))
		assert.Equal(t, "0", q.Get("minradius"))
		assert.Equal(t, "5", q.Get("maxradius"))
		assert.Equal(t, "2024-01-01T12:00:00.000000", q.Get("startbefore"))
		assert.Equal(t, "2024-01-01T13:00:00.000000", q.Get("endafter"))
		assert.Equal(t, "BH?", q.Get("channel"))
		assert.Equal(t, "text", q.Get("format"))
		assert.Equal(t, "channel", q.Get("level"))
		assert.Equal(t, "false", q.Get("includerestricted"))
		assert.Equal(t, "true", q.Get("matchtimeseries"))
		io.WriteString(w, stationText)
	}))
	defer server.Close()

	c := New(server.URL, time.Second)
	stations, err := c.Stations(context.Background(), StationQuery{
		Lat: 10.5, Lon: -20, MaxRadius: 5,
		StartBefore: tmin, EndAfter: tmin.Add(time.Hour),
		Channel: "BH?", MatchTimeseries: true,
	})
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "GE.APE.", stations[0].NSL())
	assert.Len(t, stations[0].Channels, 2)
	assert.Equal(t, "II.BFO.00", stations[1].NSL())
}

func TestStations_NoMatchTimeseries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("matchtimeseries"))
		assert.False(t, r.URL.Query().Has("startbefore"))
		io.WriteString(w, stationText)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Stations(context.Background(), StationQuery{})
	assert.NoError(t, err)
}

func TestStations_EmptyResult(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := New(server.URL, time.Second).Stations(context.Background(), StationQuery{})
		assert.ErrorIs(t, err, ErrEmptyResult, "status %d", status)
		server.Close()
	}

	headerOnly := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "#Network | Station\n")
	}))
	defer headerOnly.Close()
	_, err := New(headerOnly.URL, time.Second).Stations(context.Background(), StationQuery{})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestStations_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad latitude", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Stations(context.Background(), StationQuery{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResult)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "bad latitude")
}

func TestStations_Unreachable(t *testing.T) {
	_, err := New("http://localhost:59999", time.Second).Stations(context.Background(), StationQuery{})
	assert.Error(t, err)
}

func TestDataselect(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fdsnws/dataselect/1/query", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t,
			"GE APE -- BHZ 2024-01-01T12:00:00.000000 2024-01-01T12:10:00.000000\n"+
				"II BFO 00 BHZ 2024-01-01T12:00:00.000000 2024-01-01T12:10:00.000000\n",
			string(body))
		w.Write([]byte("miniseed"))
	}))
	defer server.Close()

	stations := []core.Station{
		{Network: "GE", Station: "APE", Channels: []core.Channel{{Name: "BHZ"}}},
		{Network: "II", Station: "BFO", Location: "00", Channels: []core.Channel{{Name: "BHZ"}}},
	}
	data, err := New(server.URL, time.Second).Dataselect(context.Background(), MakeSelection(stations, t0, t0.Add(10*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, []byte("miniseed"), data)
}

func TestDataselect_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	c := New(server.URL, time.Second)

	_, err := c.Dataselect(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = c.Dataselect(context.Background(), []Selection{{Network: "GE", Station: "APE", Channel: "BHZ"}})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestParseStationText(t *testing.T) {
	stations, err := ParseStationText(strings.NewReader(stationText))
	require.NoError(t, err)
	require.Len(t, stations, 2)

	ape := stations[0]
	assert.Equal(t, "GE", ape.Network)
	assert.Equal(t, "", ape.Location)
	assert.InDelta(t, 37.0689, ape.Lat, 1e-9)
	assert.InDelta(t, 620.0, ape.Elevation, 1e-9)
	assert.Equal(t, core.Channel{Name: "BHZ", Azimuth: 0, Dip: -90, Gain: 5.9e8, SampleRate: 20}, ape.Channels[1])
}

func TestParseStationText_Errors(t *testing.T) {
	_, err := ParseStationText(strings.NewReader("GE|APE|\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = ParseStationText(strings.NewReader("GE|APE||BHZ|north|25|0|0|0|0|x|1|1|M/S|20|\n"))
	assert.ErrorContains(t, err, "column 5")
}

func TestParseStationText_DashLocation(t *testing.T) {
	stations, err := ParseStationText(strings.NewReader("GE|APE|--|BHZ|37|25|||||||||20|\n"))
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "GE.APE.", stations[0].NSL())
}

func TestSelectionString(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 500000000, time.FixedZone("CET", 3600))
	s := Selection{Network: "GE", Station: "APE", Channel: "BHZ", Start: t0, End: t0.Add(time.Second)}
	assert.Equal(t, "GE APE -- BHZ 2024-01-01T11:00:00.500000 2024-01-01T11:00:01.500000", s.String())
}
