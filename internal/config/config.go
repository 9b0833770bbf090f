package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the configuration file looked up in the config directory.
const FileName = "markereditor.cfg.json"

// TableConfig holds the initial marker table layout.
type TableConfig struct {
	SortColumn      string   `json:"sortColumn" mapstructure:"sortColumn"`
	SortDescending  bool     `json:"sortDescending" mapstructure:"sortDescending"`
	VisibleColumns  []string `json:"visibleColumns" mapstructure:"visibleColumns"`
	DistanceRefresh string   `json:"distanceRefresh" mapstructure:"distanceRefresh"`
}

// SQLiteConfig holds SQLite station inventory settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds Postgres write-behind settings
type PostgresConfig struct {
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
}

// StorageConfig selects and configures the station inventory backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// DownloadConfig holds waveform download defaults
type DownloadConfig struct {
	Datacenter     string        `json:"datacenter" mapstructure:"datacenter"`
	ChannelPattern string        `json:"channelPattern" mapstructure:"channelPattern"`
	MinRadius      float64       `json:"minRadius" mapstructure:"minRadius"`
	MaxRadius      float64       `json:"maxRadius" mapstructure:"maxRadius"`
	UseEvent       bool          `json:"useEvent" mapstructure:"useEvent"`
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("table.sortColumn", "Time")
	viper.SetDefault("table.sortDescending", false)
	viper.SetDefault("table.visibleColumns", []string{"Type", "Time", "Magnitude"})
	viper.SetDefault("table.distanceRefresh", "reset")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.flushInterval", "2s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "stations")

	viper.SetDefault("download.datacenter", "GEOFON")
	viper.SetDefault("download.channelPattern", "BH?")
	viper.SetDefault("download.minRadius", 0.0)
	viper.SetDefault("download.maxRadius", 5.0)
	viper.SetDefault("download.useEvent", true)
	viper.SetDefault("download.timeout", "30s")

	viper.SetDefault("fdsn.sites.geofon", "https://geofon.gfz-potsdam.de")
	viper.SetDefault("fdsn.sites.iris", "https://service.iris.edu")
}

// SetDefaults registers default values without reading a file. Load calls it;
// callers that run without a config file use it directly.
func SetDefaults() {
	setDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetTableConfig returns the marker table configuration.
func GetTableConfig() TableConfig {
	return TableConfig{
		SortColumn:      viper.GetString("table.sortColumn"),
		SortDescending:  viper.GetBool("table.sortDescending"),
		VisibleColumns:  viper.GetStringSlice("table.visibleColumns"),
		DistanceRefresh: viper.GetString("table.distanceRefresh"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			FlushInterval: viper.GetDuration("storage.postgres.flushInterval"),
		},
	}
}

// GetDownloadConfig returns the download workflow defaults.
func GetDownloadConfig() DownloadConfig {
	return DownloadConfig{
		Datacenter:     viper.GetString("download.datacenter"),
		ChannelPattern: viper.GetString("download.channelPattern"),
		MinRadius:      viper.GetFloat64("download.minRadius"),
		MaxRadius:      viper.GetFloat64("download.maxRadius"),
		UseEvent:       viper.GetBool("download.useEvent"),
		Timeout:        viper.GetDuration("download.timeout"),
	}
}

// GetFDSNSites returns the configured data center base URLs keyed by
// lower-case site name.
func GetFDSNSites() map[string]string {
	return viper.GetStringMapString("fdsn.sites")
}
