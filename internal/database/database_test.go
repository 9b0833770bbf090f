package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/seismotools/markereditor/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSqlite(""))
	require.NoError(t, m.Setup())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.local")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "seis")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "inventory")

	assert.Equal(t, "host=db.local port=5433 user=seis password=secret dbname=inventory sslmode=disable", PostgresDSN())
}

func TestConnectSqlite_InMemory(t *testing.T) {
	m := newLocalManager(t)

	assert.True(t, m.IsValid)
	assert.True(t, m.Local)
	assert.True(t, m.DB.Migrator().HasTable(&model.Station{}))
	assert.True(t, m.DB.Migrator().HasTable(&model.Download{}))
}

func TestConnectSqlite_PrivateDatabases(t *testing.T) {
	a := newLocalManager(t)
	b := newLocalManager(t)

	require.NoError(t, a.DB.Create(&model.Station{NSL: "GE.APE.", Network: "GE", Station: "APE"}).Error)

	var count int64
	require.NoError(t, b.DB.Model(&model.Station{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup())
}

func TestDumpMemoryToDisk(t *testing.T) {
	m := newLocalManager(t)
	require.NoError(t, m.DB.Create(&model.Station{NSL: "GE.APE.", Network: "GE", Station: "APE"}).Error)

	path := filepath.Join(t.TempDir(), "stations.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))
	require.NoError(t, m.DumpMemoryToDisk(path))

	dumped, err := OpenSqlite(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, dumped.Model(&model.Station{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	m := newLocalManager(t)
	assert.ErrorIs(t, DumpMemoryDBToDisk(m.DB, ""), ErrNoDumpPath)
}

func TestClose_Unconnected(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.NoError(t, m.Close())
}
