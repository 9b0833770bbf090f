package storage

import "github.com/seismotools/markereditor/pkg/core"

// Backend is the interface all station inventory implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Station inventory. AddStations skips stations whose NSL code is
	// already known and returns how many were added.
	AddStations(stations ...core.Station) (int, error)
	HasStation(nsl string) (bool, error)
	Stations() ([]core.Station, error) // ordered by NSL code

	// Download history
	RecordDownload(d core.DownloadSummary) error
	Downloads() ([]core.DownloadSummary, error) // oldest first
}

// Flusher is an optional interface for backends that buffer writes.
type Flusher interface {
	Flush() error
}
