package journal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/stats"
)

// Dashboard is every aggregate the home and stats screens show, computed
// from one consistent snapshot.
//
// Its slices may be shared with other callers; treat it as read-only.
type Dashboard struct {
	Version       uint64               `json:"version"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Snapshot      stats.Snapshot       `json:"snapshot"`
	Modes         []stats.ModeShare    `json:"modes"`
	TopRoasteries []stats.RankingEntry `json:"top_roasteries"`
	TopCafes      []stats.RankingEntry `json:"top_cafes"`
	TopCoffees    []stats.RankingEntry `json:"top_coffees"`
	Trend         []stats.TrendBucket  `json:"trend"`
	Distribution  []stats.BandCount    `json:"distribution"`
	Flavors       []stats.Share        `json:"flavors"`
	Preferences   stats.Preferences    `json:"preferences"`
	Journey       stats.Journey        `json:"journey"`
}

// dashboardBase holds the aggregates that depend only on the records, so
// they stay valid for as long as the store version does.
type dashboardBase struct {
	version       uint64
	recs          []record.TastingRecord
	modes         []stats.ModeShare
	topRoasteries []stats.RankingEntry
	topCafes      []stats.RankingEntry
	topCoffees    []stats.RankingEntry
	distribution  []stats.BandCount
	flavors       []stats.Share
	preferences   stats.Preferences
}

// Dashboard returns the aggregates for the current store version as of
// now.
//
// Record-only aggregates are cached per store version; concurrent callers
// that miss the cache share a single computation. The snapshot, trend and
// journey depend on now and are recomputed from the cached records on
// every call.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()

	base, err := s.dashboardBase(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	d := &Dashboard{
		Version:       base.version,
		GeneratedAt:   now,
		Modes:         base.modes,
		TopRoasteries: base.topRoasteries,
		TopCafes:      base.topCafes,
		TopCoffees:    base.topCoffees,
		Distribution:  base.distribution,
		Flavors:       base.flavors,
		Preferences:   base.preferences,
	}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { d.Snapshot = stats.TakeSnapshot(base.recs, now, s.loc); return nil })
	g.Go(func() error { d.Trend = stats.MonthlyTrend(base.recs, now, s.loc, s.trendWindow); return nil })
	g.Go(func() error { d.Journey = stats.JourneyOf(base.recs, now); return nil })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return d, nil
}

// dashboardBase returns the cached record-only aggregates, recomputing
// them when the store version has moved.
func (s *Service) dashboardBase(ctx context.Context) (*dashboardBase, error) {
	version := s.store.Version()

	s.cacheMu.Lock()
	if s.base != nil && s.base.version == version {
		b := s.base
		s.cacheMu.Unlock()
		s.metrics.ObserveDashboardCache(true)
		return b, nil
	}
	s.cacheMu.Unlock()
	s.metrics.ObserveDashboardCache(false)

	v, err, shared := s.flight.Do(strconv.FormatUint(version, 10), func() (any, error) {
		b, err := s.computeBase(ctx)
		if err != nil {
			return nil, err
		}
		s.cacheMu.Lock()
		if s.base == nil || b.version >= s.base.version {
			s.base = b
		}
		s.cacheMu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("dashboard computation shared", "version", version)
	}
	return v.(*dashboardBase), nil
}

func (s *Service) computeBase(ctx context.Context) (*dashboardBase, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveCompute("dashboard", time.Since(start)) }()

	recs, version, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	b := &dashboardBase{version: version, recs: recs}

	// Each reducer writes its own field of b.
	g, gctx := errgroup.WithContext(ctx)
	reduce := func(fn func([]record.TastingRecord)) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(recs)
			return nil
		})
	}
	reduce(func(rs []record.TastingRecord) { b.modes = stats.Modes(rs) })
	reduce(func(rs []record.TastingRecord) { b.topRoasteries = stats.TopRoasteries(rs, s.topN) })
	reduce(func(rs []record.TastingRecord) { b.topCafes = stats.TopCafes(rs, s.topN) })
	reduce(func(rs []record.TastingRecord) { b.topCoffees = stats.TopCoffees(rs, s.topN) })
	reduce(func(rs []record.TastingRecord) { b.distribution = stats.ScoreDistribution(rs) })
	reduce(func(rs []record.TastingRecord) { b.flavors = stats.FlavorProfile(rs) })
	reduce(func(rs []record.TastingRecord) { b.preferences = stats.PreferencesOf(rs, stats.DefaultPreferenceN) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("dashboard computed", "version", version, "records", len(recs), "elapsed", time.Since(start))
	return b, nil
}
