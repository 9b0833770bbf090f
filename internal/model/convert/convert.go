// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/seismotools/markereditor/internal/geo"
	"github.com/seismotools/markereditor/internal/model"
	"github.com/seismotools/markereditor/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column, using "[]" for empty input.
func toJSON[T any](v []T) datatypes.JSON {
	if len(v) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(v)
	return datatypes.JSON(data)
}

// CoreToStation converts a core.Station to a GORM model.Station. Stations
// with coordinates outside the valid range get an empty position.
func CoreToStation(s core.Station) model.Station {
	pos, err := geo.Coords3857From4326(s.Lon, s.Lat)
	if err != nil {
		pos = geom.NewEmptyPoint(geom.DimXY)
	}
	return model.Station{
		NSL:       s.NSL(),
		Network:   s.Network,
		Station:   s.Station,
		Location:  s.Location,
		Latitude:  s.Lat,
		Longitude: s.Lon,
		Position:  pos,
		Elevation: s.Elevation,
		Depth:     s.Depth,
		Name:      s.Name,
		Channels:  toJSON(s.Channels),
	}
}

// StationToCore converts a GORM model.Station to a core.Station.
func StationToCore(s model.Station) core.Station {
	var channels []core.Channel
	if len(s.Channels) > 0 {
		_ = json.Unmarshal(s.Channels, &channels)
	}
	if len(channels) == 0 {
		channels = nil
	}
	return core.Station{
		Network:   s.Network,
		Station:   s.Station,
		Location:  s.Location,
		Lat:       s.Latitude,
		Lon:       s.Longitude,
		Elevation: s.Elevation,
		Depth:     s.Depth,
		Name:      s.Name,
		Channels:  channels,
	}
}

// CoreToDownload converts a core.DownloadSummary to a GORM model.Download.
func CoreToDownload(d core.DownloadSummary) model.Download {
	return model.Download{
		Time:       d.Time,
		Site:       d.Site,
		Latitude:   d.Lat,
		Longitude:  d.Lon,
		MinRadius:  d.MinRadius,
		MaxRadius:  d.MaxRadius,
		Tmin:       d.Tmin,
		Tmax:       d.Tmax,
		Channels:   d.Channels,
		Networks:   toJSON(d.Networks),
		Stations:   d.Stations,
		TotalBytes: d.TotalBytes,
	}
}

// DownloadToCore converts a GORM model.Download to a core.DownloadSummary.
func DownloadToCore(d model.Download) core.DownloadSummary {
	var networks []string
	if len(d.Networks) > 0 {
		_ = json.Unmarshal(d.Networks, &networks)
	}
	if len(networks) == 0 {
		networks = nil
	}
	return core.DownloadSummary{
		Time:       d.Time,
		Site:       d.Site,
		Lat:        d.Latitude,
		Lon:        d.Longitude,
		MinRadius:  d.MinRadius,
		MaxRadius:  d.MaxRadius,
		Tmin:       d.Tmin,
		Tmax:       d.Tmax,
		Channels:   d.Channels,
		Networks:   networks,
		Stations:   d.Stations,
		TotalBytes: d.TotalBytes,
	}
}
