package achievement

import (
	"slices"
	"strings"
	"time"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/record"
)

// Progress computes req's completion over history in 0..1. Deleted
// records are ignored. Clock-of-day and calendar requirements use loc; a
// nil loc means UTC. Unknown requirement types report 0.
func Progress(req catalog.Requirement, history []record.TastingRecord, loc *time.Location) float64 {
	if loc == nil {
		loc = time.UTC
	}
	live := make([]record.TastingRecord, 0, len(history))
	for _, r := range history {
		if !r.IsDeleted {
			live = append(live, r)
		}
	}
	if req.Value <= 0 {
		return 0
	}
	return ratio(measure(req, live, loc), req.Value)
}

func measure(req catalog.Requirement, live []record.TastingRecord, loc *time.Location) int {
	switch req.Type {
	case catalog.ReqTastingCount:
		return len(live)

	case catalog.ReqUniqueFlavors:
		return distinct(live, func(r record.TastingRecord) []string {
			vals := make([]string, 0, len(r.FlavorNotes))
			for _, n := range r.FlavorNotes {
				vals = append(vals, n.Value)
			}
			return vals
		})

	case catalog.ReqUniqueCoffees:
		return distinct(live, func(r record.TastingRecord) []string {
			return []string{r.CoffeeKey()}
		})

	case catalog.ReqModeCount:
		return count(live, func(r record.TastingRecord) bool {
			return string(r.Mode) == req.Mode
		})

	case catalog.ReqWeeklyVariety:
		return bestWeekVariety(live)

	case catalog.ReqBestScore:
		best := 0
		for _, r := range live {
			best = max(best, r.Scores.Total)
		}
		return best

	case catalog.ReqEarlyTasting:
		if req.Hour == nil {
			return 0
		}
		return count(live, func(r record.TastingRecord) bool {
			return r.CreatedAt.In(loc).Hour() < *req.Hour
		})

	case catalog.ReqLateTasting:
		if req.Hour == nil {
			return 0
		}
		return count(live, func(r record.TastingRecord) bool {
			return r.CreatedAt.In(loc).Hour() >= *req.Hour
		})

	case catalog.ReqMonthlyQuality:
		perMonth := make(map[string]int)
		best := 0
		for _, r := range live {
			if r.Scores.Total < req.MinScore {
				continue
			}
			key := r.CreatedAt.In(loc).Format("2006-01")
			perMonth[key]++
			best = max(best, perMonth[key])
		}
		return best

	case catalog.ReqBrewMethodVariety:
		return distinct(live, func(r record.TastingRecord) []string {
			if r.Recipe == nil {
				return nil
			}
			return []string{strings.ToLower(strings.TrimSpace(r.Recipe.Method))}
		})

	case catalog.ReqWeekendCount:
		return count(live, func(r record.TastingRecord) bool {
			wd := r.CreatedAt.In(loc).Weekday()
			return wd == time.Saturday || wd == time.Sunday
		})
	}
	return 0
}

// bestWeekVariety is the largest number of distinct coffees tasted within
// any seven-day span.
func bestWeekVariety(live []record.TastingRecord) int {
	sorted := slices.Clone(live)
	slices.SortStableFunc(sorted, func(a, b record.TastingRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	const week = 7 * 24 * time.Hour
	inWindow := make(map[string]int)
	best, lo := 0, 0
	for hi, r := range sorted {
		inWindow[r.CoffeeKey()]++
		for sorted[hi].CreatedAt.Sub(sorted[lo].CreatedAt) >= week {
			k := sorted[lo].CoffeeKey()
			if inWindow[k]--; inWindow[k] == 0 {
				delete(inWindow, k)
			}
			lo++
		}
		best = max(best, len(inWindow))
	}
	return best
}

func count(recs []record.TastingRecord, pred func(record.TastingRecord) bool) int {
	n := 0
	for _, r := range recs {
		if pred(r) {
			n++
		}
	}
	return n
}

func distinct(recs []record.TastingRecord, keys func(record.TastingRecord) []string) int {
	seen := make(map[string]struct{})
	for _, r := range recs {
		for _, k := range keys(r) {
			if k != "" {
				seen[k] = struct{}{}
			}
		}
	}
	return len(seen)
}

func ratio(n, target int) float64 {
	if n >= target {
		return 1
	}
	return float64(n) / float64(target)
}
