// Package gormstorage implements the station inventory on top of GORM. The
// SQLite and Postgres backends embed it and only add connection handling.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/seismotools/markereditor/internal/cache"
	"github.com/seismotools/markereditor/internal/logging"
	"github.com/seismotools/markereditor/internal/model"
	"github.com/seismotools/markereditor/internal/model/convert"
	"github.com/seismotools/markereditor/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoDatabase is returned when the backend is used without a connection.
var ErrNoDatabase = errors.New("station inventory database not connected")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB           *gorm.DB
	StationCache *cache.StationCache
	LogManager   *logging.SlogManager
}

// Backend stores the station inventory through GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.StationCache == nil {
		deps.StationCache = cache.NewStationCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema if needed and warms the station cache from the
// stations already stored.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		return ErrNoDatabase
	}

	if !db.Migrator().HasTable(&model.Station{}) || !db.Migrator().HasTable(&model.Download{}) {
		if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	var rows []model.Station
	if err := db.Select("id", "nsl").Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load station codes: %w", err)
	}
	for _, r := range rows {
		b.deps.StationCache.Set(r.NSL, r.ID)
	}

	b.deps.LogManager.WriteLog("gormstorage:Init", fmt.Sprintf("Loaded %d known stations", len(rows)), "DEBUG")
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (b *Backend) Close() error {
	return nil
}

// AddStations inserts stations whose NSL code is not yet known.
func (b *Backend) AddStations(stations ...core.Station) (int, error) {
	fresh := make([]core.Station, 0, len(stations))
	for _, s := range stations {
		if b.deps.StationCache.Claim(s.NSL()) {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	n, err := b.Insert(fresh)
	if err != nil {
		for _, s := range fresh {
			b.deps.StationCache.Delete(s.NSL())
		}
		return 0, err
	}
	return n, nil
}

// Insert writes stations without consulting the cache. Rows that collide
// with an existing NSL code are skipped. It returns the number of rows
// written.
func (b *Backend) Insert(stations []core.Station) (int, error) {
	if b.deps.DB == nil {
		return 0, ErrNoDatabase
	}
	if len(stations) == 0 {
		return 0, nil
	}

	rows := make([]model.Station, len(stations))
	for i, s := range stations {
		rows[i] = convert.CoreToStation(s)
	}

	res := b.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "nsl"}},
		DoNothing: true,
	}).Create(&rows)
	if res.Error != nil {
		b.deps.LogManager.WriteLog("gormstorage:Insert", fmt.Sprintf("Failed to insert stations: %v", res.Error), "ERROR")
		return 0, fmt.Errorf("failed to insert stations: %w", res.Error)
	}

	// IDs returned for a batch with skipped rows are not reliable, so only
	// the codes are recorded here. Init and HasStation load real IDs.
	for _, r := range rows {
		b.deps.StationCache.Claim(r.NSL)
	}
	return int(res.RowsAffected), nil
}

// HasStation reports whether the NSL code is stored.
func (b *Backend) HasStation(nsl string) (bool, error) {
	if b.deps.StationCache.Has(nsl) {
		return true, nil
	}
	if b.deps.DB == nil {
		return false, ErrNoDatabase
	}

	var row model.Station
	err := b.deps.DB.Select("id", "nsl").Where("nsl = ?", nsl).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up station %s: %w", nsl, err)
	}
	b.deps.StationCache.Set(row.NSL, row.ID)
	return true, nil
}

// Stations returns all stored stations ordered by NSL code.
func (b *Backend) Stations() ([]core.Station, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDatabase
	}

	var rows []model.Station
	if err := b.deps.DB.Order("nsl").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	out := make([]core.Station, len(rows))
	for i, r := range rows {
		out[i] = convert.StationToCore(r)
	}
	return out, nil
}

// RecordDownload stores a download summary.
func (b *Backend) RecordDownload(d core.DownloadSummary) error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	row := convert.CoreToDownload(d)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// Downloads returns the download history, oldest first.
func (b *Backend) Downloads() ([]core.DownloadSummary, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDatabase
	}

	var rows []model.Download
	if err := b.deps.DB.Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}}).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	out := make([]core.DownloadSummary, len(rows))
	for i, r := range rows {
		out[i] = convert.DownloadToCore(r)
	}
	return out, nil
}
