package store

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/brewlog/internal/metrics"
)

// Clock supplies wall-clock time for createdAt/updatedAt.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// IDGenerator assigns record ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 record ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Option configures a Store at Open.
type Option func(*Store)

// WithClock overrides the wall clock. Tests use a manual clock.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator overrides id assignment.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithSyncEnabled makes new records start as pending instead of local-only.
func WithSyncEnabled(enabled bool) Option {
	return func(s *Store) { s.syncEnabled = enabled }
}

// WithLogger sets the logger used for mutation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}
