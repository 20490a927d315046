package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/roach88/brewlog/internal/record"
)

// DefaultPreferenceN is how many origins and processes Preferences keeps.
const DefaultPreferenceN = 5

// BandCount is one score band of the distribution.
type BandCount struct {
	Band  record.ScoreBand `json:"band"`
	Count int              `json:"count"`
}

// ScoreDistribution counts live records per fixed score band, highest
// band first. Every band is present.
func ScoreDistribution(recs []record.TastingRecord) []BandCount {
	out := make([]BandCount, len(record.ScoreBands))
	index := make(map[record.ScoreBand]int, len(record.ScoreBands))
	for i, b := range record.ScoreBands {
		out[i].Band = b
		index[b] = i
	}
	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		out[index[record.BandOf(r.Scores.Total)]].Count++
	}
	return out
}

// Share is a named count with its percentage of some whole.
type Share struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FlavorProfile counts level-1 flavor notes across live records. Percent
// is relative to all level-1 notes counted. Ordered by count desc, then
// name asc.
func FlavorProfile(recs []record.TastingRecord) []Share {
	counts := make(map[string]int)
	total := 0
	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		for _, n := range r.FlavorNotes {
			if n.Level != 1 || n.Value == "" {
				continue
			}
			counts[n.Value]++
			total++
		}
	}
	return shares(counts, total, 0)
}

// Preferences holds the most frequent origins and processes.
type Preferences struct {
	Origins   []Share `json:"origins"`
	Processes []Share `json:"processes"`
}

// PreferencesOf returns the top n origins and processes over live
// records. Percent is relative to the number of live records. n <= 0
// means DefaultPreferenceN.
func PreferencesOf(recs []record.TastingRecord, n int) Preferences {
	if n <= 0 {
		n = DefaultPreferenceN
	}
	origins := make(map[string]int)
	processes := make(map[string]int)
	total := 0
	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		total++
		if r.Origin != "" {
			origins[r.Origin]++
		}
		if r.Process != "" {
			processes[r.Process]++
		}
	}
	return Preferences{
		Origins:   shares(origins, total, n),
		Processes: shares(processes, total, n),
	}
}

func shares(counts map[string]int, total, n int) []Share {
	out := make([]Share, 0, len(counts))
	for name, c := range counts {
		s := Share{Name: name, Count: c}
		if total > 0 {
			s.Percent = float64(c) / float64(total) * 100
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Share) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Journey summarizes how long and how often someone has been tasting.
type Journey struct {
	FirstTasting     time.Time `json:"first_tasting"`
	Days             int       `json:"days"`
	PerWeek          float64   `json:"per_week"`
	FavoriteRoastery string    `json:"favorite_roastery,omitempty"`
	FavoriteCafe     string    `json:"favorite_cafe,omitempty"`
}

// JourneyOf computes the journey as of now. Weeks are floored at one so a
// new taster's rate is not inflated. Empty input yields the zero Journey.
func JourneyOf(recs []record.TastingRecord, now time.Time) Journey {
	live := Live(recs)
	if len(live) == 0 {
		return Journey{}
	}

	first := live[0].CreatedAt
	for _, r := range live[1:] {
		if r.CreatedAt.Before(first) {
			first = r.CreatedAt
		}
	}

	j := Journey{FirstTasting: first}
	if now.After(first) {
		j.Days = int(now.Sub(first) / (24 * time.Hour))
	}
	weeks := max(1, float64(j.Days)/7)
	j.PerWeek = float64(len(live)) / weeks

	if top := TopRoasteries(live, 1); len(top) > 0 {
		j.FavoriteRoastery = top[0].Name
	}
	if top := TopCafes(live, 1); len(top) > 0 {
		j.FavoriteCafe = top[0].Name
	}
	return j
}

// Comparison is the tasting history of a single coffee.
type Comparison struct {
	Roastery     string    `json:"roastery"`
	CoffeeName   string    `json:"coffee_name"`
	Count        int       `json:"count"`
	AverageScore float64   `json:"average_score"`
	BestScore    int       `json:"best_score"`
	LatestScore  int       `json:"latest_score"`
	LatestAt     time.Time `json:"latest_at"`
}

// Compare summarizes every live tasting of the given roastery and coffee.
// Count is zero when the coffee was never tasted.
func Compare(recs []record.TastingRecord, roastery, coffee string) Comparison {
	c := Comparison{Roastery: roastery, CoffeeName: coffee}
	sum := 0
	for _, r := range recs {
		if r.IsDeleted || r.Roastery != roastery || r.CoffeeName != coffee {
			continue
		}
		c.Count++
		sum += r.Scores.Total
		if r.Scores.Total > c.BestScore {
			c.BestScore = r.Scores.Total
		}
		if c.Count == 1 || !r.CreatedAt.Before(c.LatestAt) {
			c.LatestAt = r.CreatedAt
			c.LatestScore = r.Scores.Total
		}
	}
	if c.Count > 0 {
		c.AverageScore = float64(sum) / float64(c.Count)
	}
	return c
}
