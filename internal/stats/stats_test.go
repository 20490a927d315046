package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/testutil"
)

var now = time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)

func at(days int) time.Time { return now.AddDate(0, 0, -days) }

func TestAverage_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Average(nil))
	assert.Equal(t, 0.0, Average([]record.TastingRecord{}))
	assert.False(t, math.IsNaN(Average(nil)))

	onlyDeleted := []record.TastingRecord{testutil.Tasting("x", "A", "c", 90, now, testutil.Deleted())}
	assert.Equal(t, 0.0, Average(onlyDeleted))
}

func TestTakeSnapshot(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "Fritz", "Geisha", 90, at(1), testutil.WithCafe("Fritz Dohwa")),
		testutil.Tasting("2", "Fritz", "Guji", 80, at(3), testutil.WithRecipe("V60")),
		testutil.Tasting("3", "Momos", "Kenya", 70, at(10), testutil.WithCafe("Momos")),
		testutil.Tasting("4", "Anthracite", "Blend", 60, at(40)),
		testutil.Tasting("5", "Deleted", "Blend", 100, at(1), testutil.Deleted()),
	}

	s := TakeSnapshot(recs, now, time.UTC)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 75.0, s.AverageScore)
	assert.Equal(t, 90, s.BestScore)
	assert.Equal(t, map[record.Mode]int{
		record.ModeCafe:     3,
		record.ModeHomeBrew: 1,
		record.ModeLab:      0,
	}, s.ModeCounts)
	assert.Equal(t, 3, s.UniqueRoasteries)
	assert.Equal(t, 2, s.UniqueCafes)
	assert.Equal(t, 2, s.ThisWeek)
	assert.Equal(t, 3, s.ThisMonth, "May 14, 12 and 5")
}

func TestWithin_HalfOpenWindow(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"now", now, true},
		{"just inside", now.Add(-Week + time.Millisecond), true},
		{"exactly a week ago", now.Add(-Week), false},
		{"older", now.Add(-Week - time.Hour), false},
		{"future", now.Add(time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(tt.at, now, Week))
		})
	}

	edge := []record.TastingRecord{testutil.Tasting("1", "A", "c", 80, now.Add(-Week))}
	assert.Zero(t, TakeSnapshot(edge, now, time.UTC).ThisWeek)
}

func TestTakeSnapshot_Empty(t *testing.T) {
	s := TakeSnapshot(nil, now, nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AverageScore)
	assert.Len(t, s.ModeCounts, len(record.Modes))
}

func TestModes_PercentsSumTo100(t *testing.T) {
	tests := []struct {
		name   string
		counts [3]int
		want   [3]int
	}{
		{"thirds", [3]int{1, 1, 1}, [3]int{34, 33, 33}},
		{"two to one", [3]int{2, 1, 0}, [3]int{67, 33, 0}},
		{"single mode", [3]int{0, 5, 0}, [3]int{0, 100, 0}},
		{"uneven", [3]int{3, 3, 1}, [3]int{43, 43, 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recs []record.TastingRecord
			for i, m := range record.Modes {
				for j := 0; j < tt.counts[i]; j++ {
					recs = append(recs, testutil.Tasting("r", "A", "c", 80, now, testutil.WithMode(m)))
				}
			}
			got := Modes(recs)
			require.Len(t, got, 3)
			sum := 0
			for i, share := range got {
				assert.Equal(t, record.Modes[i], share.Mode)
				assert.Equal(t, tt.want[i], share.Percent)
				sum += share.Percent
			}
			assert.Equal(t, 100, sum)
		})
	}
}

func TestModes_RoundingWithinOne(t *testing.T) {
	for a := 0; a <= 7; a++ {
		for b := 0; b <= 7; b++ {
			for c := 0; c <= 7; c++ {
				total := a + b + c
				if total == 0 {
					continue
				}
				parts := LargestRemainder([]int{a, b, c}, 100)
				sum := 0
				for i, n := range []int{a, b, c} {
					exact := float64(n) * 100 / float64(total)
					assert.LessOrEqual(t, math.Abs(float64(parts[i])-exact), 1.0)
					sum += parts[i]
				}
				assert.Equal(t, 100, sum, "counts %d,%d,%d", a, b, c)
			}
		}
	}
}

func TestModes_EmptyIsAllZero(t *testing.T) {
	for _, share := range Modes(nil) {
		assert.Zero(t, share.Count)
		assert.Zero(t, share.Percent)
		assert.Zero(t, share.Ratio)
	}
}

func TestTopRoasteries_Scenario(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "x", 80, at(5)),
		testutil.Tasting("2", "A", "x", 90, at(4)),
		testutil.Tasting("3", "A", "x", 100, at(3)),
		testutil.Tasting("4", "B", "y", 70, at(2)),
		testutil.Tasting("5", "B", "y", 95, at(1)),
	}
	got := TopRoasteries(recs, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, 90.0, got[0].AverageScore)
}

func TestTopRoasteries_TieBreakChain(t *testing.T) {
	tests := []struct {
		name string
		recs []record.TastingRecord
		want []string
	}{
		{
			name: "count wins over average",
			recs: []record.TastingRecord{
				testutil.Tasting("1", "Low", "c", 60, at(9)),
				testutil.Tasting("2", "Low", "c", 60, at(8)),
				testutil.Tasting("3", "High", "c", 99, at(7)),
			},
			want: []string{"Low", "High"},
		},
		{
			name: "equal count, average decides",
			recs: []record.TastingRecord{
				testutil.Tasting("1", "P", "c", 80, at(1)),
				testutil.Tasting("2", "Q", "c", 90, at(9)),
			},
			want: []string{"Q", "P"},
		},
		{
			name: "equal count and average, recent first occurrence first",
			recs: []record.TastingRecord{
				testutil.Tasting("1", "Old", "c", 85, at(20)),
				testutil.Tasting("2", "New", "c", 85, at(2)),
				testutil.Tasting("3", "Old", "c", 85, at(1)),
				testutil.Tasting("4", "New", "c", 85, at(1)),
			},
			want: []string{"New", "Old"},
		},
		{
			name: "full collision, name ascending",
			recs: []record.TastingRecord{
				testutil.Tasting("1", "Zeta", "c", 85, at(3)),
				testutil.Tasting("2", "Alpha", "c", 85, at(3)),
			},
			want: []string{"Alpha", "Zeta"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopRoasteries(tt.recs, 0)
			names := make([]string, len(got))
			for i, e := range got {
				names[i] = e.Name
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTopRoasteries_LengthNeverExceedsN(t *testing.T) {
	var recs []record.TastingRecord
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		recs = append(recs, testutil.Tasting(name, name, "c", 80, at(i)))
	}
	for n := 1; n <= 6; n++ {
		assert.LessOrEqual(t, len(TopRoasteries(recs, n)), n)
	}
	assert.Len(t, TopRoasteries(recs, 0), 5)
	assert.Empty(t, TopRoasteries(nil, 3))
}

func TestTopCafesAndCoffees(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "Fritz", "Geisha", 90, at(3), testutil.WithCafe("Dohwa")),
		testutil.Tasting("2", "Momos", "Geisha", 80, at(2)),
		testutil.Tasting("3", "Fritz", "Geisha", 86, at(1), testutil.WithCafe("Dohwa")),
		testutil.Tasting("4", "Fritz", "Guji", 99, at(1), testutil.Deleted()),
	}

	cafes := TopCafes(recs, 0)
	require.Len(t, cafes, 1)
	assert.Equal(t, RankingEntry{Name: "Dohwa", Count: 2, AverageScore: 88, FirstSeen: at(3)}, cafes[0])

	coffees := TopCoffees(recs, 0)
	require.Len(t, coffees, 2, "same name at different roasteries is a different coffee")
	assert.Equal(t, RankingEntry{Name: "Geisha", Roastery: "Fritz", Count: 2, AverageScore: 88, FirstSeen: at(3)}, coffees[0])
	assert.Equal(t, "Momos", coffees[1].Roastery)
}

func TestMonthlyTrend_AlwaysWindowEntries(t *testing.T) {
	got := MonthlyTrend(nil, now, time.UTC, 0)
	require.Len(t, got, DefaultTrendWindow)
	want := []string{"2025-12", "2026-01", "2026-02", "2026-03", "2026-04", "2026-05"}
	for i, b := range got {
		assert.Equal(t, want[i], b.Month)
		assert.Zero(t, b.Count)
		assert.Zero(t, b.AverageScore)
	}
}

func TestMonthlyTrend_Buckets(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "c", 80, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
		testutil.Tasting("2", "A", "c", 90, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)),
		testutil.Tasting("3", "A", "c", 70, time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)),
		testutil.Tasting("4", "A", "c", 99, time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)),
	}
	got := MonthlyTrend(recs, now, time.UTC, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "2026-03", got[0].Month)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 70.0, got[0].AverageScore)
	assert.Equal(t, 0, got[1].Count)
	assert.Equal(t, 2, got[2].Count)
	assert.Equal(t, 85.0, got[2].AverageScore)
}

func TestMonthlyTrend_UsesLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	// 2026-03-31 20:00 UTC is 2026-04-01 05:00 in Seoul.
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "c", 80, time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC)),
	}
	got := MonthlyTrend(recs, now, seoul, 2)
	assert.Equal(t, "2026-04", got[0].Month)
	assert.Equal(t, 1, got[0].Count)
}

func TestScoreDistribution(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "c", 95, now),
		testutil.Tasting("2", "A", "c", 90, now),
		testutil.Tasting("3", "A", "c", 89, now),
		testutil.Tasting("4", "A", "c", 12, now),
	}
	got := ScoreDistribution(recs)
	assert.Equal(t, []BandCount{
		{record.BandOutstanding, 2},
		{record.BandExcellent, 1},
		{record.BandVeryGood, 0},
		{record.BandGood, 0},
		{record.BandBelow, 1},
	}, got)
}

func TestFlavorProfile(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "A", "c", 80, now, testutil.WithFlavors("Fruity", "Floral")),
		testutil.Tasting("2", "A", "c", 80, now, testutil.WithFlavors("Fruity")),
		testutil.Tasting("3", "A", "c", 80, now, testutil.WithFlavors("Nutty")),
	}
	got := FlavorProfile(recs)
	require.Len(t, got, 3)
	assert.Equal(t, Share{Name: "Fruity", Count: 2, Percent: 50}, got[0])
	assert.Equal(t, "Floral", got[1].Name)
	assert.Equal(t, "Nutty", got[2].Name)
	assert.Empty(t, FlavorProfile(nil))
}

func TestPreferencesOf(t *testing.T) {
	var recs []record.TastingRecord
	for i, origin := range []string{"Ethiopia", "Ethiopia", "Kenya", "Colombia", "Brazil", "Panama", "Peru", ""} {
		recs = append(recs, testutil.Tasting("r", "A", "c", 80, at(i),
			testutil.WithOrigin(origin), testutil.WithProcess("Washed")))
	}
	p := PreferencesOf(recs, 0)
	require.Len(t, p.Origins, DefaultPreferenceN)
	assert.Equal(t, Share{Name: "Ethiopia", Count: 2, Percent: 25}, p.Origins[0])
	assert.Equal(t, []Share{{Name: "Washed", Count: 8, Percent: 100}}, p.Processes)
}

func TestJourneyOf(t *testing.T) {
	assert.Equal(t, Journey{}, JourneyOf(nil, now))

	recs := []record.TastingRecord{
		testutil.Tasting("1", "Fritz", "c", 80, at(14), testutil.WithCafe("Dohwa")),
		testutil.Tasting("2", "Fritz", "c", 80, at(7)),
		testutil.Tasting("3", "Momos", "c", 80, at(1), testutil.WithCafe("Dohwa")),
		testutil.Tasting("4", "Momos", "c", 80, at(0)),
	}
	j := JourneyOf(recs, now)
	assert.Equal(t, at(14), j.FirstTasting)
	assert.Equal(t, 14, j.Days)
	assert.Equal(t, 2.0, j.PerWeek)
	assert.Equal(t, "Momos", j.FavoriteRoastery, "same count and average, more recent first occurrence")
	assert.Equal(t, "Dohwa", j.FavoriteCafe)

	fresh := JourneyOf(recs[3:], now)
	assert.Equal(t, 1.0, fresh.PerWeek, "weeks floor at one")
}

func TestCompare(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "Fritz", "Geisha", 80, at(10)),
		testutil.Tasting("2", "Fritz", "Geisha", 92, at(5)),
		testutil.Tasting("3", "Fritz", "Geisha", 86, at(1)),
		testutil.Tasting("4", "Momos", "Geisha", 99, at(1)),
	}
	c := Compare(recs, "Fritz", "Geisha")
	assert.Equal(t, 3, c.Count)
	assert.InDelta(t, 86.0, c.AverageScore, 1e-9)
	assert.Equal(t, 92, c.BestScore)
	assert.Equal(t, 86, c.LatestScore)
	assert.Equal(t, at(1), c.LatestAt)

	none := Compare(recs, "Nobody", "Nothing")
	assert.Zero(t, none.Count)
	assert.Zero(t, none.AverageScore)
}

func TestAggregatesAreDeterministic(t *testing.T) {
	recs := []record.TastingRecord{
		testutil.Tasting("1", "B", "c", 85, at(3)),
		testutil.Tasting("2", "A", "c", 85, at(3)),
		testutil.Tasting("3", "C", "c", 70, at(2)),
	}
	first := TopRoasteries(recs, 0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, TopRoasteries(recs, 0))
		assert.Equal(t, Modes(recs), Modes(recs))
	}
}
