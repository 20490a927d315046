package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/events"
	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/stats"
	"github.com/roach88/brewlog/internal/testutil"
)

var now = time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time { return now.AddDate(0, 0, -d) }

func defaultEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return New(c, opts...)
}

func insightIDs(in []Insight) []string {
	out := make([]string, len(in))
	for i, x := range in {
		out[i] = x.ID
	}
	return out
}

// richHistory triggers most default rules in the trailing week.
func richHistory() []record.TastingRecord {
	fruity := testutil.WithFlavors("Fruity")
	return []record.TastingRecord{
		testutil.Tasting("p1", "A", "Old", 70, daysAgo(10)),
		testutil.Tasting("p2", "A", "Old", 70, daysAgo(9)),
		testutil.Tasting("r1", "A", "Geisha", 92, daysAgo(6), fruity, testutil.WithOrigin("Ethiopia")),
		testutil.Tasting("r2", "B", "Guji", 88, daysAgo(5), fruity, testutil.WithOrigin("Kenya")),
		testutil.Tasting("r3", "C", "Huila", 86, daysAgo(4), fruity, testutil.WithOrigin("Colombia")),
		testutil.Tasting("r4", "A", "Geisha", 90, daysAgo(2), fruity),
		testutil.Tasting("r5", "A", "Geisha", 85, daysAgo(1), fruity),
	}
}

func TestEvaluate_EmptyWindowReturnsExamples(t *testing.T) {
	e := defaultEngine(t)
	c, _ := catalog.Default()

	for name, recs := range map[string][]record.TastingRecord{
		"no history":   nil,
		"only old":     {testutil.Tasting("old", "A", "c", 90, daysAgo(30))},
		"only deleted": {testutil.Tasting("del", "A", "c", 90, daysAgo(1), testutil.Deleted())},
	} {
		t.Run(name, func(t *testing.T) {
			got := e.Evaluate(recs, Request{Period: PeriodWeekly, Now: now})
			require.Len(t, got, len(c.Examples))
			for i, in := range got {
				assert.Equal(t, c.Examples[i].ID, in.ID)
				assert.Equal(t, KindExample, in.Kind)
				assert.False(t, in.Personalized)
			}
		})
	}
}

func TestEvaluate_BackfillsToThreeWithDistinctCategories(t *testing.T) {
	e := defaultEngine(t)
	recs := []record.TastingRecord{
		testutil.Tasting("r1", "A", "c", 80, daysAgo(1), testutil.WithFlavors("Fruity")),
	}

	got := e.Evaluate(recs, Request{Period: PeriodWeekly, Now: now})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"flavor_favorite", "score_honestly", "try_new_roastery"}, insightIDs(got))
	assert.Equal(t, KindRule, got[0].Kind)
	assert.Equal(t, "Fruity is your flavor", got[0].Title)
	assert.Equal(t, 1.0, got[0].Evidence)
	for _, in := range got {
		assert.True(t, in.Personalized)
	}
	assert.Equal(t, KindEncouragement, got[1].Kind)
	assert.Equal(t, "score", got[1].Category)
	assert.Equal(t, "discovery", got[2].Category)
}

func TestEvaluate_NoRuleFiresStillThree(t *testing.T) {
	e := defaultEngine(t)
	recs := []record.TastingRecord{testutil.Tasting("r1", "A", "c", 50, daysAgo(1))}

	got := e.Evaluate(recs, Request{Now: now})
	assert.Equal(t, []string{"explore_flavors", "score_honestly", "try_new_roastery"}, insightIDs(got))
}

func TestEvaluate_OrderingAndLimit(t *testing.T) {
	e := defaultEngine(t)

	got := e.Evaluate(richHistory(), Request{Period: PeriodWeekly, Now: now})
	assert.Equal(t, []string{"standout_cup", "scores_rising", "busy_stretch"}, insightIDs(got))
	assert.Equal(t, "Your best cup this week scored 92.", got[0].Detail)
	assert.Equal(t, "up", got[1].Trend)
	assert.InDelta(t, 18.2, got[1].Evidence, 1e-9)

	all := e.Evaluate(richHistory(), Request{Period: PeriodWeekly, Now: now, Limit: 20})
	assert.Equal(t, []string{
		"standout_cup",
		"scores_rising",
		"busy_stretch",
		"flavor_favorite",
		"high_standards",
		"origin_explorer",
		"roastery_hopper",
		"loyal_regular",
	}, insightIDs(all))
	assert.Equal(t, "Loyal to A", all[7].Title)
}

func TestEvaluate_LimitNeverBelowThree(t *testing.T) {
	e := defaultEngine(t)
	got := e.Evaluate(richHistory(), Request{Now: now, Limit: 1})
	assert.Len(t, got, 3)
}

func TestEvaluate_MonthlyWindow(t *testing.T) {
	e := defaultEngine(t)
	recs := []record.TastingRecord{
		testutil.Tasting("r1", "A", "c", 95, daysAgo(20)),
	}

	weekly := e.Evaluate(recs, Request{Period: PeriodWeekly, Now: now})
	assert.False(t, weekly[0].Personalized)

	monthly := e.Evaluate(recs, Request{Period: PeriodMonthly, Now: now})
	assert.Equal(t, "standout_cup", monthly[0].ID)
	assert.Equal(t, "Your best cup this month scored 95.", monthly[0].Detail)
}

func TestEvaluate_TieBreaks(t *testing.T) {
	src := `
rules: [
	{id: "first", category: "score", icon: "", metric: "tasting_count", op: ">=", threshold: 1, priority: 10, title: "t", detail: "d"},
	{id: "bigger", category: "score", icon: "", metric: "best_score", op: ">=", threshold: 1, priority: 10, title: "t", detail: "d"},
	{id: "second", category: "score", icon: "", metric: "tasting_count", op: ">=", threshold: 1, priority: 10, title: "t", detail: "d"},
	{id: "urgent", category: "score", icon: "", metric: "tasting_count", op: ">=", threshold: 1, priority: 90, title: "t", detail: "d"},
]
encouragements: [
	{id: "e1", category: "flavor", icon: "", title: "t", detail: "d"},
	{id: "e2", category: "score", icon: "", title: "t", detail: "d"},
	{id: "e3", category: "discovery", icon: "", title: "t", detail: "d"},
]
examples: [
	{id: "x1", category: "flavor", icon: "", title: "t", detail: "d"},
	{id: "x2", category: "score", icon: "", title: "t", detail: "d"},
	{id: "x3", category: "discovery", icon: "", title: "t", detail: "d"},
]
`
	c, err := catalog.Load([]byte(src), "ties.cue")
	require.NoError(t, err)
	e := New(c)

	recs := []record.TastingRecord{testutil.Tasting("r1", "A", "c", 80, daysAgo(1))}
	got := e.Evaluate(recs, Request{Now: now, Limit: 10})
	assert.Equal(t, []string{"urgent", "bigger", "first", "second"}, insightIDs(got))
}

func TestEvaluate_DeterministicAndPure(t *testing.T) {
	e := defaultEngine(t)
	recs := richHistory()
	before := make([]record.TastingRecord, len(recs))
	for i, r := range recs {
		before[i] = r.Clone()
	}

	first := e.Evaluate(recs, Request{Now: now, Limit: 10})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Evaluate(recs, Request{Now: now, Limit: 10}))
	}
	assert.Equal(t, before, recs)
}

func TestEvaluate_UsesClockWhenNowZero(t *testing.T) {
	e := defaultEngine(t, WithClock(func() time.Time { return now }))
	recs := []record.TastingRecord{testutil.Tasting("r1", "A", "c", 95, daysAgo(1))}
	got := e.Evaluate(recs, Request{})
	assert.Equal(t, "standout_cup", got[0].ID)
}

func TestEvaluate_PublishesEvent(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe()
	e := defaultEngine(t, WithBus(bus))

	e.Evaluate(nil, Request{Period: PeriodMonthly, Now: now})

	ev, ok := sub.TryNext()
	require.True(t, ok)
	assert.Equal(t, events.KindInsightsGenerated, ev.Kind)
	require.NotNil(t, ev.Insights)
	assert.Equal(t, "monthly", ev.Insights.Period)
	assert.False(t, ev.Insights.Personalized)
	assert.Len(t, ev.Insights.RuleIDs, 3)
}

func TestSplit_WeekBoundaryMatchesSnapshot(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("edge", "A", "c", 80, now.Add(-stats.Week)),
		testutil.Tasting("inside", "A", "c", 80, now.Add(-stats.Week+time.Millisecond)),
		testutil.Tasting("prev", "A", "c", 80, now.Add(-2*stats.Week+time.Millisecond)),
		testutil.Tasting("old", "A", "c", 80, now.Add(-2*stats.Week)),
		testutil.Tasting("future", "A", "c", 80, now.Add(time.Minute)),
	}

	w := split(recs, now, DefaultWeeklyWindow)
	ids := func(rs []record.TastingRecord) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"inside"}, ids(w.recent))
	assert.Equal(t, []string{"edge", "prev"}, ids(w.previous))
	assert.Len(t, w.full, 4)

	assert.Equal(t, len(w.recent), stats.TakeSnapshot(recs, now, time.UTC).ThisWeek)
}

func TestWithWindows(t *testing.T) {
	e := defaultEngine(t, WithWindows(48*time.Hour, 0))
	assert.Equal(t, 48*time.Hour, e.Window(PeriodWeekly))
	assert.Equal(t, DefaultMonthlyWindow, e.Window(PeriodMonthly))
}

func TestMeasure(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "c", 80, now, testutil.WithRecipe("V60"), testutil.WithOrigin("Kenya")),
		testutil.Tasting("2", "B", "c", 90, now, testutil.WithOrigin("Kenya")),
	}
	tests := []struct {
		metric string
		want   float64
		ok     bool
	}{
		{catalog.MetricTastingCount, 2, true},
		{catalog.MetricAverageScore, 85, true},
		{catalog.MetricBestScore, 90, true},
		{catalog.MetricUniqueRoasteries, 2, true},
		{catalog.MetricUniqueOrigins, 1, true},
		{catalog.MetricHomeBrewShare, 0.5, true},
		{catalog.MetricTopRoasteryCount, 1, true},
		{catalog.MetricTopFlavorShare, 0, false},
		{catalog.MetricScoreTrend, 0, false},
		{"nonsense", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			ev, ok := measure(tt.metric, recs, nil)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, ev.Value, 1e-9)
			}
		})
	}

	_, ok := measure(catalog.MetricTastingCount, nil, nil)
	assert.False(t, ok)
}
