// Package postgres implements the station inventory on PostgreSQL/PostGIS.
// New stations are queued and written in batches by a background goroutine.
package postgres

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/seismotools/markereditor/internal/cache"
	"github.com/seismotools/markereditor/internal/database"
	"github.com/seismotools/markereditor/internal/logging"
	"github.com/seismotools/markereditor/internal/queue"
	gormstorage "github.com/seismotools/markereditor/internal/storage/gorm"
	"github.com/seismotools/markereditor/pkg/core"

	"gorm.io/gorm"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	// DB is an already opened connection. When nil, Init connects using the
	// db.* configuration and falls back to in-memory SQLite if the server
	// is unreachable.
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	DBLog         zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
	known   *cache.StationCache
	pending *queue.Queue[core.Station]

	flushMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	known := cache.NewStationCache()
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{StationCache: known, LogManager: deps.LogManager}),
		deps:    deps,
		known:   known,
		pending: queue.New[core.Station](),
	}
}

// Init connects if needed, runs schema migration and starts the writer goroutine.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		b.manager = database.NewManager(b.deps.DBLog)
		if err := b.manager.Connect(); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := b.manager.Setup(); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
		db = b.manager.DB
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:           db,
		StationCache: b.known,
		LogManager:   b.deps.LogManager,
	})
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	b.wg.Wait()
	b.stopChan = nil

	err := b.Flush()
	if b.manager != nil {
		if cerr := b.manager.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// AddStations queues stations whose NSL code is not yet known. They are
// visible to HasStation immediately and written on the next flush.
func (b *Backend) AddStations(stations ...core.Station) (int, error) {
	added := 0
	for _, s := range stations {
		if b.known.Claim(s.NSL()) {
			b.pending.Push(s)
			added++
		}
	}
	return added, nil
}

// Stations flushes queued stations and lists the inventory.
func (b *Backend) Stations() ([]core.Station, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}
	return b.Backend.Stations()
}

// Pending returns the number of queued, unwritten stations.
func (b *Backend) Pending() int {
	return b.pending.Len()
}

// Flush writes all queued stations. On failure they are requeued.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	batch := b.pending.GetAndEmpty()
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	n, err := b.Backend.Insert(batch)
	if err != nil {
		b.pending.Push(batch...)
		return err
	}
	b.deps.LogManager.WriteLog("postgres:Flush",
		fmt.Sprintf("Wrote %d of %d queued stations in %s", n, len(batch), time.Since(start)), "DEBUG")
	return nil
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.LogManager.WriteLog("postgres:writeLoop", fmt.Sprintf("Error writing stations: %v", err), "ERROR")
			}
		}
	}
}
