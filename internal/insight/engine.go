// Package insight evaluates the catalogue's insight rules against recent
// tasting history.
//
// Evaluation is a single pass over the catalogue in declaration order.
// Each rule's metric is computed over its scope (the recent window or
// full history), compared with the rule's threshold, and, if it holds,
// rendered into an Insight with the metric value as evidence.
//
// Results are ordered by priority desc, then evidence magnitude desc,
// then declaration order, and capped at the request limit. Every
// evaluation returns at least three insights: an empty recent window
// yields the catalogue's example set (Personalized false), and otherwise
// encouragements pad the list, preferring categories not yet shown.
package insight

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/events"
	"github.com/roach88/brewlog/internal/metrics"
	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/stats"
)

// Period selects the recent window.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Default window lengths.
const (
	DefaultWeeklyWindow  = stats.Week
	DefaultMonthlyWindow = 30 * 24 * time.Hour
)

// Kind tells where an insight came from.
type Kind string

const (
	KindRule          Kind = "rule"
	KindEncouragement Kind = "encouragement"
	KindExample       Kind = "example"
)

// Insight is one displayed observation.
type Insight struct {
	ID           string  `json:"id"`
	Kind         Kind    `json:"kind"`
	Category     string  `json:"category"`
	Icon         string  `json:"icon"`
	Title        string  `json:"title"`
	Detail       string  `json:"detail"`
	Trend        string  `json:"trend,omitempty"`
	Evidence     float64 `json:"evidence"`
	Priority     int     `json:"priority"`
	Personalized bool    `json:"personalized"`
}

// Request parameterizes one evaluation. A zero Now means the engine's
// clock; a Limit below catalog.MinInsights is raised to it.
type Request struct {
	Period Period
	Now    time.Time
	Limit  int
}

// Engine evaluates a catalogue. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	weekly  time.Duration
	monthly time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
	bus     *events.Bus
}

// Option configures an Engine.
type Option func(*Engine)

// WithWindows overrides the weekly and monthly window lengths. Zero keeps
// the default.
func WithWindows(weekly, monthly time.Duration) Option {
	return func(e *Engine) {
		if weekly > 0 {
			e.weekly = weekly
		}
		if monthly > 0 {
			e.monthly = monthly
		}
	}
}

// WithClock sets the clock used when a request has no Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records evaluation counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithBus publishes an InsightsGenerated event after each evaluation.
func WithBus(b *events.Bus) Option {
	return func(e *Engine) { e.bus = b }
}

// New creates an engine over c.
func New(c *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: c,
		weekly:  DefaultWeeklyWindow,
		monthly: DefaultMonthlyWindow,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Window returns the recent-window length for p.
func (e *Engine) Window(p Period) time.Duration {
	if p == PeriodMonthly {
		return e.monthly
	}
	return e.weekly
}

// Evaluate produces the insights for records as of req.Now. Deleted
// records are ignored. It never fails; a rule whose template cannot be
// rendered is logged and skipped.
func (e *Engine) Evaluate(records []record.TastingRecord, req Request) []Insight {
	start := time.Now()
	if req.Period == "" {
		req.Period = PeriodWeekly
	}
	if req.Now.IsZero() {
		req.Now = e.now()
	}
	limit := max(req.Limit, catalog.MinInsights)

	w := split(records, req.Now, e.Window(req.Period))

	var out []Insight
	personalized := len(w.recent) > 0
	if !personalized {
		out = e.examples()
	} else {
		out = e.fire(w, windowLabel(req.Period))
		sortInsights(out)
		if len(out) > limit {
			out = out[:limit]
		}
		out = e.backfill(out)
	}

	e.metrics.ObserveCompute("insights", time.Since(start))
	e.metrics.ObserveInsights(string(req.Period), personalized)
	e.publish(req, out, personalized)
	e.logger.Debug("insights evaluated",
		"period", req.Period,
		"recent", len(w.recent),
		"count", len(out),
		"personalized", personalized)
	return out
}

// fire evaluates every rule in declaration order.
func (e *Engine) fire(w windows, label string) []Insight {
	var out []Insight
	for _, rule := range e.catalog.Rules {
		current, previous := w.recent, w.previous
		if rule.Scope == catalog.ScopeFull {
			current, previous = w.full, nil
		}

		ev, ok := measure(rule.Metric, current, previous)
		if !ok || !rule.Holds(ev.Value) {
			continue
		}
		ev.Threshold = rule.Threshold
		ev.Window = label

		title, detail, err := rule.Render(ev)
		if err != nil {
			e.logger.Warn("insight rule render failed", "rule", rule.ID, "error", err)
			continue
		}
		out = append(out, Insight{
			ID:           rule.ID,
			Kind:         KindRule,
			Category:     rule.Category,
			Icon:         rule.Icon,
			Title:        title,
			Detail:       detail,
			Trend:        rule.Trend,
			Evidence:     ev.Value,
			Priority:     rule.Priority,
			Personalized: true,
		})
	}
	return out
}

// backfill pads out to catalog.MinInsights with encouragements, first
// from fallback categories not yet present, then any unused one.
func (e *Engine) backfill(out []Insight) []Insight {
	if len(out) >= catalog.MinInsights {
		return out
	}
	present := make(map[string]bool)
	for _, in := range out {
		present[in.Category] = true
	}
	used := make(map[string]bool)

	for _, cat := range catalog.FallbackOrder {
		if len(out) >= catalog.MinInsights {
			return out
		}
		if present[cat] {
			continue
		}
		for _, m := range e.catalog.Encouragements {
			if m.Category == cat && !used[m.ID] {
				out = append(out, fromMessage(m, KindEncouragement, true))
				used[m.ID] = true
				present[cat] = true
				break
			}
		}
	}
	for _, m := range e.catalog.Encouragements {
		if len(out) >= catalog.MinInsights {
			break
		}
		if !used[m.ID] {
			out = append(out, fromMessage(m, KindEncouragement, true))
			used[m.ID] = true
		}
	}
	return out
}

func (e *Engine) examples() []Insight {
	out := make([]Insight, 0, len(e.catalog.Examples))
	for _, m := range e.catalog.Examples {
		out = append(out, fromMessage(m, KindExample, false))
	}
	return out
}

func (e *Engine) publish(req Request, out []Insight, personalized bool) {
	if e.bus == nil {
		return
	}
	ids := make([]string, len(out))
	for i, in := range out {
		ids[i] = in.ID
	}
	e.bus.Publish(events.Event{
		Kind: events.KindInsightsGenerated,
		At:   req.Now,
		Insights: &events.InsightsGenerated{
			Period:       string(req.Period),
			Personalized: personalized,
			RuleIDs:      ids,
		},
	})
}

func fromMessage(m catalog.Message, kind Kind, personalized bool) Insight {
	return Insight{
		ID:           m.ID,
		Kind:         kind,
		Category:     m.Category,
		Icon:         m.Icon,
		Title:        m.Title,
		Detail:       m.Detail,
		Trend:        m.Trend,
		Personalized: personalized,
	}
}

// sortInsights orders by priority desc then evidence magnitude desc. The
// sort is stable, so declaration order breaks remaining ties.
func sortInsights(out []Insight) {
	slices.SortStableFunc(out, func(a, b Insight) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(math.Abs(b.Evidence), math.Abs(a.Evidence))
	})
}

func windowLabel(p Period) string {
	if p == PeriodMonthly {
		return "month"
	}
	return "week"
}
