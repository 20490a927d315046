package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/roach88/brewlog/internal/record"
)

// DefaultTopN is the ranking size used when callers do not pick one.
const DefaultTopN = 3

// RankingEntry is one group in a top-N ranking. Roastery is set only for
// coffee rankings, where a coffee is identified by roastery and name.
type RankingEntry struct {
	Name         string    `json:"name"`
	Roastery     string    `json:"roastery,omitempty"`
	Count        int       `json:"count"`
	AverageScore float64   `json:"average_score"`
	FirstSeen    time.Time `json:"first_seen"`

	sum int
}

// TopRoasteries ranks roasteries. n <= 0 returns every group.
func TopRoasteries(recs []record.TastingRecord, n int) []RankingEntry {
	return rank(recs, n, func(r record.TastingRecord) (string, string, string, bool) {
		return r.Roastery, r.Roastery, "", r.Roastery != ""
	})
}

// TopCafes ranks cafes. Records without a cafe are ignored.
func TopCafes(recs []record.TastingRecord, n int) []RankingEntry {
	return rank(recs, n, func(r record.TastingRecord) (string, string, string, bool) {
		return r.CafeName, r.CafeName, "", r.CafeName != ""
	})
}

// TopCoffees ranks coffees grouped by roastery and coffee name.
func TopCoffees(recs []record.TastingRecord, n int) []RankingEntry {
	return rank(recs, n, func(r record.TastingRecord) (string, string, string, bool) {
		return r.CoffeeKey(), r.CoffeeName, r.Roastery, r.CoffeeName != ""
	})
}

type groupFunc func(r record.TastingRecord) (key, name, roastery string, ok bool)

func rank(recs []record.TastingRecord, n int, group groupFunc) []RankingEntry {
	groups := make(map[string]*RankingEntry)
	var order []string
	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		key, name, roastery, ok := group(r)
		if !ok {
			continue
		}
		e, seen := groups[key]
		if !seen {
			e = &RankingEntry{Name: name, Roastery: roastery, FirstSeen: r.CreatedAt}
			groups[key] = e
			order = append(order, key)
		}
		e.Count++
		e.sum += r.Scores.Total
		if r.CreatedAt.Before(e.FirstSeen) {
			e.FirstSeen = r.CreatedAt
		}
	}

	out := make([]RankingEntry, 0, len(groups))
	for _, key := range order {
		e := *groups[key]
		e.AverageScore = float64(e.sum) / float64(e.Count)
		out = append(out, e)
	}
	slices.SortFunc(out, compareRanking)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].sum = 0
	}
	return out
}

// compareRanking is the ranking tie-break chain: count desc, average desc,
// first occurrence more recent first, then name and roastery ascending.
// Averages are compared as exact fractions.
func compareRanking(a, b RankingEntry) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	if c := cmp.Compare(b.sum*a.Count, a.sum*b.Count); c != 0 {
		return c
	}
	if c := b.FirstSeen.Compare(a.FirstSeen); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.Roastery, b.Roastery)
}
