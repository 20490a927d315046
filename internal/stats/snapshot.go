// Package stats reduces tasting records to aggregates.
//
// Every function is a pure function of its input slice: deleted records
// are skipped, empty input yields zero values (never NaN), and identical
// input (including order) yields identical output. Nothing here returns
// an error.
package stats

import (
	"time"

	"github.com/roach88/brewlog/internal/record"
)

// Snapshot is the headline summary of a record set.
type Snapshot struct {
	Total            int                 `json:"total"`
	AverageScore     float64             `json:"average_score"`
	BestScore        int                 `json:"best_score"`
	ModeCounts       map[record.Mode]int `json:"mode_counts"`
	UniqueRoasteries int                 `json:"unique_roasteries"`
	UniqueCafes      int                 `json:"unique_cafes"`
	ThisWeek         int                 `json:"this_week"`
	ThisMonth        int                 `json:"this_month"`
}

// Live returns the non-deleted records of recs in order. The result
// shares no backing array with recs.
func Live(recs []record.TastingRecord) []record.TastingRecord {
	out := make([]record.TastingRecord, 0, len(recs))
	for _, r := range recs {
		if !r.IsDeleted {
			out = append(out, r)
		}
	}
	return out
}

// Average is the arithmetic mean of total scores over live records, or 0.
func Average(recs []record.TastingRecord) float64 {
	var sum, n int
	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		sum += r.Scores.Total
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// Best returns the highest total score over live records, or 0.
func Best(recs []record.TastingRecord) int {
	best := 0
	for _, r := range recs {
		if !r.IsDeleted && r.Scores.Total > best {
			best = r.Scores.Total
		}
	}
	return best
}

// Week is the trailing window behind Snapshot.ThisWeek.
const Week = 7 * 24 * time.Hour

// Within reports whether t falls in the trailing window (now-w, now].
func Within(t, now time.Time, w time.Duration) bool {
	return t.After(now.Add(-w)) && !t.After(now)
}

// TakeSnapshot summarizes recs as of now. ThisWeek counts the trailing
// week (now-7d, now]; ThisMonth counts the calendar month of now in loc.
// A nil loc means UTC.
func TakeSnapshot(recs []record.TastingRecord, now time.Time, loc *time.Location) Snapshot {
	if loc == nil {
		loc = time.UTC
	}
	s := Snapshot{ModeCounts: make(map[record.Mode]int, len(record.Modes))}
	for _, m := range record.Modes {
		s.ModeCounts[m] = 0
	}

	roasteries := make(map[string]struct{})
	cafes := make(map[string]struct{})
	nowLocal := now.In(loc)
	var sum int

	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		s.Total++
		sum += r.Scores.Total
		if r.Scores.Total > s.BestScore {
			s.BestScore = r.Scores.Total
		}
		s.ModeCounts[r.Mode]++
		roasteries[r.Roastery] = struct{}{}
		if r.CafeName != "" {
			cafes[r.CafeName] = struct{}{}
		}
		if Within(r.CreatedAt, now, Week) {
			s.ThisWeek++
		}
		if sameMonth(r.CreatedAt.In(loc), nowLocal) {
			s.ThisMonth++
		}
	}

	if s.Total > 0 {
		s.AverageScore = float64(sum) / float64(s.Total)
	}
	s.UniqueRoasteries = len(roasteries)
	s.UniqueCafes = len(cafes)
	return s
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
