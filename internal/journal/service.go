// Package journal is the facade the presentation layer talks to.
//
// A Service owns nothing but wiring: records live in the store, queries
// and aggregates are pure functions over a snapshot read from it, and the
// rule engines consume that same snapshot. Everything returned is plain
// data; callers never receive a store reference.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/brewlog/internal/achievement"
	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/events"
	"github.com/roach88/brewlog/internal/insight"
	"github.com/roach88/brewlog/internal/metrics"
	"github.com/roach88/brewlog/internal/query"
	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/stats"
	"github.com/roach88/brewlog/internal/store"
)

// Service wires the store to the query, aggregation and rule engines.
// It is safe for concurrent use.
type Service struct {
	store    *store.Store
	insights *insight.Engine
	tracker  *achievement.Tracker

	loc         *time.Location
	topN        int
	trendWindow int
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics

	flight  singleflight.Group
	cacheMu sync.Mutex
	base    *dashboardBase
}

type settings struct {
	loc             *time.Location
	topN            int
	trendWindow     int
	weekly, monthly time.Duration
	now             func() time.Time
	logger          *slog.Logger
	metrics         *metrics.Metrics
	bus             *events.Bus
}

// Option configures a Service.
type Option func(*settings)

// WithLocation sets the zone for calendar buckets and time-of-day
// achievements. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithTopN sets the ranking size of the dashboard. Defaults to
// stats.DefaultTopN.
func WithTopN(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithTrendWindow sets the number of monthly trend buckets.
func WithTrendWindow(months int) Option {
	return func(s *settings) {
		if months > 0 {
			s.trendWindow = months
		}
	}
}

// WithInsightWindows overrides the weekly and monthly insight windows.
func WithInsightWindows(weekly, monthly time.Duration) Option {
	return func(s *settings) {
		s.weekly, s.monthly = weekly, monthly
	}
}

// WithClock overrides the wall clock used for "now"-relative windows.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for the service and its engines. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records cache, compute and rule metrics on m. Nil disables
// them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithBus forwards insight and unlock events to b.
func WithBus(b *events.Bus) Option {
	return func(s *settings) { s.bus = b }
}

// New creates a Service over st using the rules and achievements of cat.
func New(st *store.Store, cat *catalog.Catalog, opts ...Option) *Service {
	cfg := settings{
		loc:         time.UTC,
		topN:        stats.DefaultTopN,
		trendWindow: stats.DefaultTrendWindow,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Service{
		store: st,
		insights: insight.New(cat,
			insight.WithWindows(cfg.weekly, cfg.monthly),
			insight.WithClock(cfg.now),
			insight.WithLogger(cfg.logger),
			insight.WithMetrics(cfg.metrics),
			insight.WithBus(cfg.bus),
		),
		tracker: achievement.NewTracker(cat, st,
			achievement.WithLocation(cfg.loc),
			achievement.WithLogger(cfg.logger),
			achievement.WithMetrics(cfg.metrics),
			achievement.WithBus(cfg.bus),
		),
		loc:         cfg.loc,
		topN:        cfg.topN,
		trendWindow: cfg.trendWindow,
		now:         cfg.now,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
	}
}

// Version returns the current store version.
func (s *Service) Version() uint64 {
	return s.store.Version()
}

// Add stores a new tasting and re-evaluates achievements. It returns the
// stored record and the achievements this write unlocked.
//
// An achievement evaluation failure is logged, not returned: the record
// is already committed.
func (s *Service) Add(ctx context.Context, d record.Draft) (record.TastingRecord, []achievement.Achievement, error) {
	r, err := s.store.Create(ctx, d)
	if err != nil {
		return record.TastingRecord{}, nil, err
	}
	s.logger.Debug("tasting added", "id", r.ID, "roastery", r.Roastery, "total", r.Scores.Total)
	return r, s.reevaluate(ctx), nil
}

// Import stores drafts in order and evaluates achievements once at the
// end. It stops at the first failing draft; records stored before it are
// kept and returned alongside the error.
func (s *Service) Import(ctx context.Context, drafts []record.Draft) ([]record.TastingRecord, []achievement.Achievement, error) {
	out := make([]record.TastingRecord, 0, len(drafts))
	for i, d := range drafts {
		r, err := s.store.Create(ctx, d)
		if err != nil {
			var unlocked []achievement.Achievement
			if len(out) > 0 {
				unlocked = s.reevaluate(ctx)
			}
			return out, unlocked, fmt.Errorf("draft %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	s.logger.Info("tastings imported", "count", len(out))
	if len(out) == 0 {
		return out, nil, nil
	}
	return out, s.reevaluate(ctx), nil
}

// Get returns the live record with the given id.
func (s *Service) Get(ctx context.Context, id string) (record.TastingRecord, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies patch to a live record and re-evaluates achievements.
func (s *Service) Update(ctx context.Context, id string, patch record.Patch) (record.TastingRecord, []achievement.Achievement, error) {
	r, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return record.TastingRecord{}, nil, err
	}
	s.logger.Debug("tasting updated", "id", r.ID)
	return r, s.reevaluate(ctx), nil
}

// Delete soft-deletes a record. Deleting twice is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.SoftDelete(ctx, id)
}

// Restore undoes a soft delete.
func (s *Service) Restore(ctx context.Context, id string) (record.TastingRecord, error) {
	return s.store.Restore(ctx, id)
}

// Purge physically removes soft-deleted records last updated before
// olderThan.
func (s *Service) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	n, err := s.store.Purge(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	s.logger.Info("purged deleted tastings", "count", n, "older_than", olderThan)
	return n, nil
}

// Query runs predicates over the store. Coarse constraints are pushed
// into SQL first; the query engine then applies the full predicate set,
// sort and pagination.
func (s *Service) Query(ctx context.Context, p query.Predicates, opts query.Options) ([]record.TastingRecord, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveCompute("query", time.Since(start)) }()

	recs, err := s.store.List(ctx, query.Pushdown(p))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return query.Run(slices.Values(recs), p, opts), nil
}

// Insights evaluates the insight rules for period as of now.
func (s *Service) Insights(ctx context.Context, period insight.Period, limit int) ([]insight.Insight, error) {
	recs, err := s.live(ctx)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	return s.insights.Evaluate(recs, insight.Request{Period: period, Now: s.now(), Limit: limit}), nil
}

// Achievements re-evaluates every achievement over full history and
// returns them in catalogue order.
func (s *Service) Achievements(ctx context.Context) ([]achievement.Achievement, error) {
	recs, err := s.live(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievements: %w", err)
	}
	return s.tracker.Evaluate(ctx, recs, s.now())
}

// Compare summarizes every tasting of one coffee.
func (s *Service) Compare(ctx context.Context, roastery, coffee string) (stats.Comparison, error) {
	recs, err := s.store.List(ctx, store.Filter{Roastery: roastery})
	if err != nil {
		return stats.Comparison{}, fmt.Errorf("compare: %w", err)
	}
	return stats.Compare(recs, roastery, coffee), nil
}

// Count returns the number of live records.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Pending returns records awaiting a push by the sync collaborator.
func (s *Service) Pending(ctx context.Context) ([]record.TastingRecord, error) {
	return s.store.Pending(ctx)
}

func (s *Service) live(ctx context.Context) ([]record.TastingRecord, error) {
	return s.store.List(ctx, store.Filter{})
}

// reevaluate runs the tracker and returns what it newly unlocked.
func (s *Service) reevaluate(ctx context.Context) []achievement.Achievement {
	before, err := s.tracker.List(ctx)
	if err != nil {
		s.logger.Warn("achievement evaluation skipped", "error", err)
		return nil
	}
	after, err := s.Achievements(ctx)
	if err != nil {
		s.logger.Warn("achievement evaluation failed", "error", err)
		return nil
	}
	return newlyUnlocked(before, after)
}

// newlyUnlocked pairs before and after by position; both are in catalogue
// order.
func newlyUnlocked(before, after []achievement.Achievement) []achievement.Achievement {
	var out []achievement.Achievement
	for i, a := range after {
		if a.Unlocked() && (i >= len(before) || !before[i].Unlocked()) {
			out = append(out, a)
		}
	}
	return out
}
