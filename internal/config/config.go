// Package config loads brewlog configuration from YAML and the
// environment.
package config

import (
	"time"
	_ "time/tzdata"
)

// Config is the root configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	Insights InsightsConfig `yaml:"insights"`
	Stats    StatsConfig    `yaml:"stats"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// StoreConfig holds record store settings.
type StoreConfig struct {
	Path        string        `yaml:"path"         env:"BREWLOG_DB"           env-default:"brewlog.db"`
	SyncEnabled bool          `yaml:"sync_enabled" env:"BREWLOG_SYNC_ENABLED" env-default:"false"`
	PurgeAfter  time.Duration `yaml:"purge_after"  env:"BREWLOG_PURGE_AFTER"  env-default:"720h"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"BREWLOG_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"BREWLOG_LOG_FORMAT" env-default:"text"`
}

// InsightsConfig holds insight window settings.
type InsightsConfig struct {
	WeeklyWindow  time.Duration `yaml:"weekly_window"  env:"BREWLOG_INSIGHTS_WEEKLY_WINDOW"  env-default:"168h"`
	MonthlyWindow time.Duration `yaml:"monthly_window" env:"BREWLOG_INSIGHTS_MONTHLY_WINDOW" env-default:"720h"`
	Limit         int           `yaml:"limit"          env:"BREWLOG_INSIGHTS_LIMIT"          env-default:"3"`
}

// StatsConfig holds aggregation settings.
type StatsConfig struct {
	TopN        int    `yaml:"top_n"        env:"BREWLOG_TOP_N"        env-default:"3"`
	TrendMonths int    `yaml:"trend_months" env:"BREWLOG_TREND_MONTHS" env-default:"6"`
	Timezone    string `yaml:"timezone"     env:"BREWLOG_TIMEZONE"     env-default:"UTC"`

	location *time.Location
}

// Location is the parsed Timezone. It is set by Validate; before that it
// is UTC.
func (s StatsConfig) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

// CatalogConfig points at an alternative rule catalogue. Empty means the
// embedded default.
type CatalogConfig struct {
	Path string `yaml:"path" env:"BREWLOG_CATALOG"`
}

// MetricsConfig holds the Prometheus textfile destination. Empty
// disables the write.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" env:"BREWLOG_METRICS_TEXTFILE"`
}
