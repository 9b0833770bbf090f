package gormstorage

import (
	"testing"

	"github.com/seismotools/markereditor/internal/cache"
	"github.com/seismotools/markereditor/internal/database"
	"github.com/seismotools/markereditor/internal/model"
	"github.com/seismotools/markereditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, StationCache: cache.NewStationCache()})
	require.NoError(t, b.Init())
	return b
}

func TestInit_NoDatabase(t *testing.T) {
	b := New(Dependencies{})
	assert.ErrorIs(t, b.Init(), ErrNoDatabase)

	_, err := b.Stations()
	assert.ErrorIs(t, err, ErrNoDatabase)
	n, err := b.AddStations(core.Station{Network: "GE", Station: "APE"})
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.Zero(t, n)
	assert.False(t, b.deps.StationCache.Has("GE.APE."), "failed claims are released")
}

func TestInit_WarmsCache(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	require.NoError(t, db.Create(&model.Station{NSL: "GE.APE.", Network: "GE", Station: "APE"}).Error)

	c := cache.NewStationCache()
	b := New(Dependencies{DB: db, StationCache: c})
	require.NoError(t, b.Init())

	id, ok := c.Get("GE.APE.")
	require.True(t, ok)
	assert.NotZero(t, id)

	n, err := b.AddStations(core.Station{Network: "GE", Station: "APE"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsert_SkipsExistingRows(t *testing.T) {
	b := newTestBackend(t)

	n, err := b.Insert([]core.Station{{Network: "GE", Station: "APE"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = b.Insert([]core.Station{{Network: "GE", Station: "APE"}, {Network: "GE", Station: "KTHA"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int64
	require.NoError(t, b.DB().Model(&model.Station{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestHasStation_FallsBackToDatabase(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.DB().Create(&model.Station{NSL: "II.BFO.00", Network: "II", Station: "BFO", Location: "00"}).Error)

	ok, err := b.HasStation("II.BFO.00")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b.deps.StationCache.Has("II.BFO.00"))
}

func TestStations_StoresProjectedPosition(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.AddStations(core.Station{Network: "GE", Station: "APE", Lat: 37.07, Lon: 25.53})
	require.NoError(t, err)

	var row model.Station
	require.NoError(t, b.DB().Where("nsl = ?", "GE.APE.").Take(&row).Error)
	assert.False(t, row.Position.IsEmpty())
	xy, ok := row.Position.XY()
	require.True(t, ok)
	assert.InDelta(t, 2842000, xy.X, 2000, "web mercator easting")
}
