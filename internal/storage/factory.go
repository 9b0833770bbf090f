package storage

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/seismotools/markereditor/internal/config"
	"github.com/seismotools/markereditor/internal/logging"
	"github.com/seismotools/markereditor/internal/storage/memory"
	"github.com/seismotools/markereditor/internal/storage/postgres"
	sqlitestorage "github.com/seismotools/markereditor/internal/storage/sqlite"
)

// Dependencies holds the loggers handed to the backends.
type Dependencies struct {
	LogManager *logging.SlogManager
	DBLog      zerolog.Logger
}

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{
			LogManager:    deps.LogManager,
			DBLog:         deps.DBLog,
			FlushInterval: cfg.Postgres.FlushInterval,
		}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:         cfg.SQLite.Path,
			DumpPath:     cfg.SQLite.DumpPath,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, deps.LogManager, deps.DBLog), nil
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
