// Package achievement evaluates long-lived milestones over full tasting
// history.
//
// Each catalogue achievement pairs with a pure progress function chosen by
// its requirement type. The Tracker calls every definition on every
// evaluation, persists progress, and emits an unlock event only on the
// transition from below 1 to 1. The unlock stamp is written once by the
// store and never moves, even if progress later regresses.
package achievement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/events"
	"github.com/roach88/brewlog/internal/metrics"
	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/store"
)

// StateStore persists achievement progress. *store.Store implements it.
type StateStore interface {
	AchievementStates(ctx context.Context) (map[string]store.AchievementState, error)
	RecordAchievementProgress(ctx context.Context, id string, progress float64, now time.Time) (store.AchievementState, bool, error)
}

// Achievement is an achievement definition joined with its state.
type Achievement struct {
	ID          string     `json:"id"`
	Category    string     `json:"category"`
	Rarity      string     `json:"rarity"`
	Icon        string     `json:"icon"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Progress    float64    `json:"progress"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Unlocked reports whether the achievement has ever been unlocked.
func (a Achievement) Unlocked() bool { return a.UnlockedAt != nil }

// Tracker evaluates achievements and records their state.
type Tracker struct {
	defs    []catalog.Achievement
	states  StateStore
	loc     *time.Location
	logger  *slog.Logger
	metrics *metrics.Metrics
	bus     *events.Bus
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLocation sets the zone used for time-of-day and calendar
// requirements. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithMetrics counts unlocks.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithBus publishes an AchievementUnlocked event per unlock.
func WithBus(b *events.Bus) Option {
	return func(t *Tracker) { t.bus = b }
}

// NewTracker creates a tracker for the catalogue's achievements.
func NewTracker(c *catalog.Catalog, states StateStore, opts ...Option) *Tracker {
	t := &Tracker{
		defs:   c.Achievements,
		states: states,
		loc:    time.UTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Evaluate recomputes every achievement over history as of now and
// persists the result. It is idempotent: re-running with the same history
// changes nothing and emits nothing. The result is in declaration order.
func (t *Tracker) Evaluate(ctx context.Context, history []record.TastingRecord, now time.Time) ([]Achievement, error) {
	start := time.Now()
	defer func() { t.metrics.ObserveCompute("achievements", time.Since(start)) }()

	prev, err := t.states.AchievementStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievements: %w", err)
	}

	out := make([]Achievement, 0, len(t.defs))
	for _, def := range t.defs {
		progress := Progress(def.Requirement, history, t.loc)

		state, known := prev[def.ID]
		if !known || state.Progress != progress {
			var unlockedNow bool
			state, unlockedNow, err = t.states.RecordAchievementProgress(ctx, def.ID, progress, now)
			if err != nil {
				return nil, fmt.Errorf("achievements: %s: %w", def.ID, err)
			}
			if unlockedNow {
				t.unlocked(def, *state.UnlockedAt)
			}
		}
		out = append(out, join(def, state))
	}
	return out, nil
}

// List returns the stored state of every achievement without
// re-evaluating. Achievements never evaluated report zero progress.
func (t *Tracker) List(ctx context.Context) ([]Achievement, error) {
	states, err := t.states.AchievementStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievements: %w", err)
	}
	out := make([]Achievement, 0, len(t.defs))
	for _, def := range t.defs {
		out = append(out, join(def, states[def.ID]))
	}
	return out, nil
}

func (t *Tracker) unlocked(def catalog.Achievement, at time.Time) {
	t.logger.Info("achievement unlocked", "achievement", def.ID, "rarity", def.Rarity)
	t.metrics.ObserveUnlock(def.ID)
	t.bus.Publish(events.Event{
		Kind: events.KindAchievementUnlocked,
		At:   at,
		Achievement: &events.AchievementUnlocked{
			ID:         def.ID,
			Title:      def.Title,
			Rarity:     def.Rarity,
			UnlockedAt: at,
		},
	})
}

func join(def catalog.Achievement, st store.AchievementState) Achievement {
	return Achievement{
		ID:          def.ID,
		Category:    def.Category,
		Rarity:      def.Rarity,
		Icon:        def.Icon,
		Title:       def.Title,
		Description: def.Description,
		Progress:    st.Progress,
		UnlockedAt:  st.UnlockedAt,
	}
}
