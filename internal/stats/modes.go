package stats

import (
	"slices"

	"github.com/roach88/brewlog/internal/record"
)

// ModeShare is one row of the mode breakdown. Ratio is exact; Percent is
// the display value.
type ModeShare struct {
	Mode    record.Mode `json:"mode"`
	Count   int         `json:"count"`
	Ratio   float64     `json:"ratio"`
	Percent int         `json:"percent"`
}

// Modes returns one share per known mode in display order. For non-empty
// input the percents sum to exactly 100 and each is within 1 of the exact
// value (largest-remainder rounding). Empty input yields all zeros.
func Modes(recs []record.TastingRecord) []ModeShare {
	out := make([]ModeShare, len(record.Modes))
	index := make(map[record.Mode]int, len(record.Modes))
	for i, m := range record.Modes {
		out[i].Mode = m
		index[m] = i
	}

	total := 0
	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		i, ok := index[r.Mode]
		if !ok {
			continue
		}
		out[i].Count++
		total++
	}
	if total == 0 {
		return out
	}

	counts := make([]int, len(out))
	for i := range out {
		out[i].Ratio = float64(out[i].Count) / float64(total)
		counts[i] = out[i].Count
	}
	for i, p := range LargestRemainder(counts, 100) {
		out[i].Percent = p
	}
	return out
}

// LargestRemainder apportions scale across counts proportionally so the
// parts sum to exactly scale. Ties on the remainder go to the earlier
// index. A zero total yields all zeros.
func LargestRemainder(counts []int, scale int) []int {
	out := make([]int, len(counts))
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return out
	}

	type rem struct {
		idx int
		r   int
	}
	rems := make([]rem, len(counts))
	assigned := 0
	for i, c := range counts {
		out[i] = c * scale / total
		rems[i] = rem{idx: i, r: c * scale % total}
		assigned += out[i]
	}

	slices.SortStableFunc(rems, func(a, b rem) int { return b.r - a.r })
	for i := 0; assigned < scale; i++ {
		out[rems[i].idx]++
		assigned++
	}
	return out
}
