package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Station{},
	&Download{},
}

////////////////////////
// STATION INVENTORY
////////////////////////

// Station is a seismic station known to the session. Stations are keyed by
// their network.station.location code and never duplicated.
type Station struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time      `json:"createdAt"`
	NSL       string         `json:"nsl" gorm:"size:64;uniqueIndex:idx_station_nsl"`
	Network   string         `json:"network" gorm:"size:8;index:idx_station_network"`
	Station   string         `json:"station" gorm:"size:8"`
	Location  string         `json:"location" gorm:"size:8"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Position  geom.Point     `json:"position"` // EPSG:3857
	Elevation float64        `json:"elevation"`
	Depth     float64        `json:"depth"`
	Name      string         `json:"name" gorm:"size:255"`
	Channels  datatypes.JSON `json:"channels"`
}

func (*Station) TableName() string {
	return "stations"
}

// Download records one completed waveform retrieval.
type Download struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time      `json:"time" gorm:"index:idx_download_time"`
	Site       string         `json:"site" gorm:"size:32"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	MinRadius  float64        `json:"minRadius"`
	MaxRadius  float64        `json:"maxRadius"`
	Tmin       time.Time      `json:"tmin"`
	Tmax       time.Time      `json:"tmax"`
	Channels   string         `json:"channels" gorm:"size:16"`
	Networks   datatypes.JSON `json:"networks"`
	Stations   int            `json:"stations"`
	TotalBytes int            `json:"totalBytes"`
}

func (*Download) TableName() string {
	return "downloads"
}
