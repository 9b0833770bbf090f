// Package sqlitestorage implements the station inventory on SQLite, either in
// a file or in memory with periodic disk dumps via VACUUM INTO. It wraps the
// GORM backend; only connection setup and dumping are SQLite specific.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/seismotools/markereditor/internal/cache"
	"github.com/seismotools/markereditor/internal/database"
	"github.com/seismotools/markereditor/internal/logging"
	gormstorage "github.com/seismotools/markereditor/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path         string // database file, empty for in-memory
	DumpPath     string // target of periodic VACUUM INTO dumps
	DumpInterval time.Duration
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *database.Manager
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend. The database is opened by Init.
func New(cfg Config, logManager *logging.SlogManager, dbLog zerolog.Logger) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{LogManager: logManager}),
		db:      database.NewManager(dbLog),
		cfg:     cfg,
		log:     logManager,
	}
}

// Init opens and migrates the database, initializes the embedded GORM
// backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.db.ConnectSqlite(b.cfg.Path); err != nil {
		return err
	}
	if err := b.db.Setup(); err != nil {
		return err
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:           b.db.DB,
		StationCache: cache.NewStationCache(),
		LogManager:   b.log,
	})
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	b.wg.Wait()
	b.stopChan = nil

	var dumpErr error
	if b.cfg.DumpPath != "" {
		dumpErr = b.Dump()
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	return dumpErr
}

// Dump writes a snapshot of the database to the configured dump path.
func (b *Backend) Dump() error {
	if err := b.db.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
		b.log.WriteLog("sqlite:Dump", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		return err
	}
	return nil
}

// dumpLoop periodically dumps the database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err == nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
