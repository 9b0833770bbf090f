package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/seismotools/markereditor/internal/database"
	"github.com/seismotools/markereditor/internal/model"
	"github.com/seismotools/markereditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeforeInit(t *testing.T) {
	b := New(Config{}, nil, zerolog.Nop())
	_, err := b.Stations()
	assert.Error(t, err)
	assert.NoError(t, b.Close(), "closing an uninitialized backend is a no-op")
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.db")

	b := New(Config{Path: path}, nil, zerolog.Nop())
	require.NoError(t, b.Init())
	_, err := b.AddStations(core.Station{Network: "GE", Station: "APE"})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	reopened := New(Config{Path: path}, nil, zerolog.Nop())
	require.NoError(t, reopened.Init())
	defer reopened.Close()

	ok, err := reopened.HasStation("GE.APE.")
	require.NoError(t, err)
	assert.True(t, ok)
	n, err := reopened.AddStations(core.Station{Network: "GE", Station: "APE"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCloseWritesFinalDump(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")

	b := New(Config{DumpPath: dump, DumpInterval: time.Hour}, nil, zerolog.Nop())
	require.NoError(t, b.Init())
	_, err := b.AddStations(core.Station{Network: "GE", Station: "APE"}, core.Station{Network: "GE", Station: "KTHA"})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	db, err := database.OpenSqlite(dump)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&model.Station{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")

	b := New(Config{DumpPath: dump, DumpInterval: 20 * time.Millisecond}, nil, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()
	_, err := b.AddStations(core.Station{Network: "GE", Station: "APE"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}
