package achievement

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/events"
	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/store"
	"github.com/roach88/brewlog/internal/testutil"
)

// 2026-05-16 is a Saturday.
var base = time.Date(2026, 5, 16, 9, 0, 0, 0, time.UTC)

func hour(h int) *int { return &h }

func TestProgress(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "Geisha", 92, base.Add(-3*time.Hour), // 06:00 Saturday
			testutil.WithFlavors("Fruity", "Floral")),
		testutil.Tasting("2", "A", "Guji", 86, base.AddDate(0, 0, 1).Add(14*time.Hour), // 23:00 Sunday
			testutil.WithFlavors("Fruity"), testutil.WithRecipe("V60")),
		testutil.Tasting("3", "B", "Geisha", 88, base.AddDate(0, 0, 2), // Monday
			testutil.WithRecipe(" v60 ")),
		testutil.Tasting("4", "B", "Kenya", 70, base.AddDate(0, 0, 20),
			testutil.WithRecipe("Chemex")),
		testutil.Tasting("5", "C", "Deleted", 100, base, testutil.Deleted()),
	}

	tests := []struct {
		name string
		req  catalog.Requirement
		want float64
	}{
		{"tasting count partial", catalog.Requirement{Type: catalog.ReqTastingCount, Value: 8}, 0.5},
		{"tasting count capped", catalog.Requirement{Type: catalog.ReqTastingCount, Value: 1}, 1},
		{"unique flavors", catalog.Requirement{Type: catalog.ReqUniqueFlavors, Value: 4}, 0.5},
		{"unique coffees by roastery", catalog.Requirement{Type: catalog.ReqUniqueCoffees, Value: 8}, 0.5},
		{"mode count", catalog.Requirement{Type: catalog.ReqModeCount, Value: 6, Mode: "home_brew"}, 0.5},
		{"weekly variety", catalog.Requirement{Type: catalog.ReqWeeklyVariety, Value: 6}, 0.5},
		{"best score ignores deleted", catalog.Requirement{Type: catalog.ReqBestScore, Value: 100}, 0.92},
		{"early tasting", catalog.Requirement{Type: catalog.ReqEarlyTasting, Value: 1, Hour: hour(7)}, 1},
		{"late tasting", catalog.Requirement{Type: catalog.ReqLateTasting, Value: 2, Hour: hour(22)}, 0.5},
		{"late tasting without hour", catalog.Requirement{Type: catalog.ReqLateTasting, Value: 1}, 0},
		{"monthly quality", catalog.Requirement{Type: catalog.ReqMonthlyQuality, Value: 6, MinScore: 85}, 0.5},
		{"brew methods folded", catalog.Requirement{Type: catalog.ReqBrewMethodVariety, Value: 4}, 0.5},
		{"weekend count", catalog.Requirement{Type: catalog.ReqWeekendCount, Value: 4}, 0.5},
		{"unknown type", catalog.Requirement{Type: "nope", Value: 1}, 0},
		{"zero target", catalog.Requirement{Type: catalog.ReqTastingCount, Value: 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Progress(tt.req, recs, time.UTC), 1e-9)
		})
	}
}

func TestProgress_EmptyHistory(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	for _, a := range c.Achievements {
		assert.Zero(t, Progress(a.Requirement, nil, nil), a.ID)
	}
}

func TestProgress_LocationShiftsHour(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	// 21:30 UTC is 06:30 the next morning in Seoul.
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "c", 80, time.Date(2026, 5, 14, 21, 30, 0, 0, time.UTC)),
	}
	req := catalog.Requirement{Type: catalog.ReqEarlyTasting, Value: 1, Hour: hour(7)}
	assert.Zero(t, Progress(req, recs, time.UTC))
	assert.Equal(t, 1.0, Progress(req, recs, seoul))
}

func TestBestWeekVariety_SlidingWindow(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "one", 80, base),
		testutil.Tasting("2", "A", "two", 80, base.AddDate(0, 0, 3)),
		testutil.Tasting("3", "A", "three", 80, base.AddDate(0, 0, 7)),
		testutil.Tasting("4", "A", "four", 80, base.AddDate(0, 0, 8)),
		testutil.Tasting("5", "A", "two", 80, base.AddDate(0, 0, 9)),
	}
	// Days 3..9 hold two, three, four, two: three distinct coffees.
	assert.Equal(t, 3, bestWeekVariety(recs))
	assert.Zero(t, bestWeekVariety(nil))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ach.db"),
		store.WithClock(testutil.NewSteppingClock(base, time.Minute)),
		store.WithIDGenerator(testutil.NewSequentialIDs("rec")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func find(t *testing.T, list []Achievement, id string) Achievement {
	t.Helper()
	for _, a := range list {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("achievement %s not found", id)
	return Achievement{}
}

func TestTracker_UnlocksExactlyOnce(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Default()
	require.NoError(t, err)

	bus := events.NewBus()
	sub := bus.Subscribe()
	tr := NewTracker(c, openStore(t), WithBus(bus))

	history := []record.TastingRecord{testutil.Tasting("1", "A", "Geisha", 80, base)}

	t1 := base.Add(time.Hour)
	got, err := tr.Evaluate(ctx, history, t1)
	require.NoError(t, err)
	require.Len(t, got, len(c.Achievements))

	first := find(t, got, "first_tasting")
	require.True(t, first.Unlocked())
	assert.Equal(t, t1, *first.UnlockedAt)
	assert.Equal(t, 1.0, first.Progress)

	unlockedIDs := map[string]bool{}
	for {
		ev, ok := sub.TryNext()
		if !ok {
			break
		}
		require.Equal(t, events.KindAchievementUnlocked, ev.Kind)
		unlockedIDs[ev.Achievement.ID] = true
	}
	assert.Equal(t, map[string]bool{"first_tasting": true, "coffee_discoverer_1": true}, unlockedIDs)

	// Same history again: nothing changes, nothing is emitted.
	again, err := tr.Evaluate(ctx, history, t1.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, got, again)
	_, ok := sub.TryNext()
	assert.False(t, ok)

	// Growing history keeps the original stamp.
	history = append(history, testutil.Tasting("2", "B", "Guji", 85, base.AddDate(0, 0, 1)))
	grown, err := tr.Evaluate(ctx, history, t1.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, t1, *find(t, grown, "first_tasting").UnlockedAt)
	assert.InDelta(t, 0.4, find(t, grown, "coffee_discoverer_5").Progress, 1e-9)
	_, ok = sub.TryNext()
	assert.False(t, ok)
}

func TestTracker_RegressionKeepsUnlock(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Default()
	require.NoError(t, err)
	tr := NewTracker(c, openStore(t))

	history := []record.TastingRecord{testutil.Tasting("1", "A", "Geisha", 80, base)}
	_, err = tr.Evaluate(ctx, history, base)
	require.NoError(t, err)

	history[0].IsDeleted = true
	got, err := tr.Evaluate(ctx, history, base.Add(time.Hour))
	require.NoError(t, err)

	first := find(t, got, "first_tasting")
	assert.Zero(t, first.Progress)
	require.True(t, first.Unlocked())
	assert.Equal(t, base, *first.UnlockedAt)
}

func TestTracker_List(t *testing.T) {
	ctx := context.Background()
	c, err := catalog.Default()
	require.NoError(t, err)
	tr := NewTracker(c, openStore(t))

	before, err := tr.List(ctx)
	require.NoError(t, err)
	require.Len(t, before, len(c.Achievements))
	for _, a := range before {
		assert.Zero(t, a.Progress)
		assert.False(t, a.Unlocked())
	}

	history := testutil.Series("r", 5, base, "A", "Geisha", 80)
	evaluated, err := tr.Evaluate(ctx, history, base)
	require.NoError(t, err)

	after, err := tr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, evaluated, after)
	assert.Equal(t, "first_tasting", after[0].ID)
}
