package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Validate checks the loaded configuration and resolves the stats
// timezone. Load calls it automatically.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.PurgeAfter < 0 {
		return fmt.Errorf("store.purge_after must be >= 0 (got %v)", c.Store.PurgeAfter)
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %s (got %q)", strings.Join(logLevels, ", "), c.Log.Level)
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("log.format must be one of %s (got %q)", strings.Join(logFormats, ", "), c.Log.Format)
	}

	if err := c.Insights.validate(); err != nil {
		return fmt.Errorf("insights: %w", err)
	}
	if err := c.Stats.validate(); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return nil
}

func (i *InsightsConfig) validate() error {
	if i.WeeklyWindow <= 0 {
		return fmt.Errorf("weekly_window must be > 0 (got %v)", i.WeeklyWindow)
	}
	if i.MonthlyWindow < i.WeeklyWindow {
		return fmt.Errorf("monthly_window must be >= weekly_window (got %v < %v)", i.MonthlyWindow, i.WeeklyWindow)
	}
	if i.Limit < 1 {
		return fmt.Errorf("limit must be >= 1 (got %d)", i.Limit)
	}
	return nil
}

func (s *StatsConfig) validate() error {
	if s.TopN < 1 {
		return fmt.Errorf("top_n must be >= 1 (got %d)", s.TopN)
	}
	if s.TrendMonths < 1 || s.TrendMonths > 120 {
		return fmt.Errorf("trend_months must be in 1..120 (got %d)", s.TrendMonths)
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	s.location = loc
	return nil
}
