package stats

import (
	"time"

	"github.com/roach88/brewlog/internal/record"
)

// DefaultTrendWindow is the number of monthly buckets, current month
// included.
const DefaultTrendWindow = 6

// MonthKeyLayout formats bucket keys as YYYY-MM.
const MonthKeyLayout = "2006-01"

// TrendBucket is one calendar month of the trailing trend.
type TrendBucket struct {
	Month        string    `json:"month"`
	Start        time.Time `json:"start"`
	Count        int       `json:"count"`
	AverageScore float64   `json:"average_score"`

	sum int
}

// MonthlyTrend partitions recs into exactly window calendar-month buckets
// ending with the month of now in loc, oldest first. Empty months report
// zero count and zero average. window <= 0 means DefaultTrendWindow.
func MonthlyTrend(recs []record.TastingRecord, now time.Time, loc *time.Location, window int) []TrendBucket {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	current := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	first := current.AddDate(0, -(window - 1), 0)

	buckets := make([]TrendBucket, window)
	index := make(map[string]int, window)
	for i := range buckets {
		start := first.AddDate(0, i, 0)
		key := start.Format(MonthKeyLayout)
		buckets[i] = TrendBucket{Month: key, Start: start}
		index[key] = i
	}

	for _, r := range recs {
		if r.IsDeleted {
			continue
		}
		i, ok := index[r.CreatedAt.In(loc).Format(MonthKeyLayout)]
		if !ok {
			continue
		}
		buckets[i].Count++
		buckets[i].sum += r.Scores.Total
	}

	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].AverageScore = float64(buckets[i].sum) / float64(buckets[i].Count)
		}
		buckets[i].sum = 0
	}
	return buckets
}
