package core

import "time"

// DownloadSummary describes a completed waveform retrieval.
type DownloadSummary struct {
	Time       time.Time
	Site       string
	Lat        float64
	Lon        float64
	MinRadius  float64 // degrees
	MaxRadius  float64 // degrees
	Tmin       time.Time
	Tmax       time.Time
	Channels   string
	Networks   []string // networks that returned data, in retrieval order
	Stations   int
	TotalBytes int
}
