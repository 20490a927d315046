package insight

import (
	"time"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/stats"
)

// windows partitions live history relative to now. recent is
// (now-w, now], previous is (now-2w, now-w].
type windows struct {
	recent   []record.TastingRecord
	previous []record.TastingRecord
	full     []record.TastingRecord
}

func split(recs []record.TastingRecord, now time.Time, w time.Duration) windows {
	var out windows
	for _, r := range recs {
		if r.IsDeleted || r.CreatedAt.After(now) {
			continue
		}
		out.full = append(out.full, r)
		switch {
		case stats.Within(r.CreatedAt, now, w):
			out.recent = append(out.recent, r)
		case stats.Within(r.CreatedAt, now.Add(-w), w):
			out.previous = append(out.previous, r)
		}
	}
	return out
}

// measure computes metric over current (and previous, for trends). ok is
// false when the metric is undefined for the input, e.g. no flavor notes.
func measure(metric string, current, previous []record.TastingRecord) (ev catalog.Evidence, ok bool) {
	ev.Metric = metric
	ev.Count = len(current)
	if len(current) == 0 {
		return ev, false
	}

	switch metric {
	case catalog.MetricTastingCount:
		ev.Value = float64(len(current))
	case catalog.MetricAverageScore:
		ev.Value = stats.Average(current)
	case catalog.MetricBestScore:
		ev.Value = float64(stats.Best(current))
	case catalog.MetricUniqueRoasteries:
		ev.Value = float64(distinct(current, func(r record.TastingRecord) string { return r.Roastery }))
	case catalog.MetricUniqueOrigins:
		ev.Value = float64(distinct(current, func(r record.TastingRecord) string { return r.Origin }))
	case catalog.MetricTopFlavorShare:
		profile := stats.FlavorProfile(current)
		if len(profile) == 0 {
			return ev, false
		}
		ev.Value = profile[0].Percent / 100
		ev.Subject = profile[0].Name
	case catalog.MetricTopRoasteryCount:
		top := stats.TopRoasteries(current, 1)
		if len(top) == 0 {
			return ev, false
		}
		ev.Value = float64(top[0].Count)
		ev.Subject = top[0].Name
	case catalog.MetricScoreTrend:
		if len(previous) == 0 {
			return ev, false
		}
		ev.Value = stats.Average(current) - stats.Average(previous)
	case catalog.MetricHomeBrewShare:
		n := 0
		for _, r := range current {
			if r.Mode == record.ModeHomeBrew {
				n++
			}
		}
		ev.Value = float64(n) / float64(len(current))
	default:
		return ev, false
	}
	return ev, true
}

// distinct counts distinct non-empty keys.
func distinct(recs []record.TastingRecord, key func(record.TastingRecord) string) int {
	seen := make(map[string]struct{})
	for _, r := range recs {
		if k := key(r); k != "" {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}
