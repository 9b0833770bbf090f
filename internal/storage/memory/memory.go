// Package memory keeps the station inventory in process memory. It is the
// default backend and loses its contents when the session ends.
package memory

import (
	"sort"
	"sync"

	"github.com/seismotools/markereditor/pkg/core"
)

// Backend stores stations and download history in memory
type Backend struct {
	stations  map[string]core.Station // keyed by NSL
	downloads []core.DownloadSummary
	mu        sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		stations: make(map[string]core.Station),
	}
}

// Init is a no-op for the memory backend.
func (b *Backend) Init() error {
	return nil
}

// Close is a no-op for the memory backend.
func (b *Backend) Close() error {
	return nil
}

// AddStations stores stations not seen before.
func (b *Backend) AddStations(stations ...core.Station) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := 0
	for _, s := range stations {
		nsl := s.NSL()
		if _, ok := b.stations[nsl]; ok {
			continue
		}
		b.stations[nsl] = s
		added++
	}
	return added, nil
}

// HasStation reports whether a station with the NSL code is stored.
func (b *Backend) HasStation(nsl string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.stations[nsl]
	return ok, nil
}

// Stations returns all stored stations ordered by NSL code.
func (b *Backend) Stations() ([]core.Station, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.Station, 0, len(b.stations))
	for _, s := range b.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NSL() < out[j].NSL() })
	return out, nil
}

// RecordDownload appends a download to the history.
func (b *Backend) RecordDownload(d core.DownloadSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d.Networks = append([]string(nil), d.Networks...)
	b.downloads = append(b.downloads, d)
	return nil
}

// Downloads returns the download history, oldest first.
func (b *Backend) Downloads() ([]core.DownloadSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.DownloadSummary(nil), b.downloads...), nil
}
