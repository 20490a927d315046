package testutil

import (
	"fmt"
	"time"

	"github.com/roach88/brewlog/internal/record"
)

// RecordOption customizes a fixture record.
type RecordOption func(*record.TastingRecord)

// Tasting builds a live cafe record with the given total score. Flavor and
// sensory scores are set equal to total so the composition invariant holds.
func Tasting(id, roastery, coffee string, total int, at time.Time, opts ...RecordOption) record.TastingRecord {
	r := record.TastingRecord{
		ID:          id,
		CreatedAt:   at,
		UpdatedAt:   at,
		Roastery:    roastery,
		CoffeeName:  coffee,
		Temperature: record.TemperatureHot,
		Mode:        record.ModeCafe,
		Scores:      record.Scores{Total: total, Flavor: total, Sensory: total},
		FlavorNotes: []record.FlavorNote{},
		SyncStatus:  record.SyncLocalOnly,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Series builds n records one day apart starting at start, with ids
// "<prefix>-0001" onward.
func Series(prefix string, n int, start time.Time, roastery, coffee string, total int, opts ...RecordOption) []record.TastingRecord {
	out := make([]record.TastingRecord, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%04d", prefix, i+1)
		out = append(out, Tasting(id, roastery, coffee, total, start.AddDate(0, 0, i), opts...))
	}
	return out
}

func WithCafe(name string) RecordOption {
	return func(r *record.TastingRecord) { r.CafeName = name }
}

func WithOrigin(origin string) RecordOption {
	return func(r *record.TastingRecord) { r.Origin = origin }
}

func WithProcess(process string) RecordOption {
	return func(r *record.TastingRecord) { r.Process = process }
}

func WithMode(m record.Mode) RecordOption {
	return func(r *record.TastingRecord) { r.Mode = m }
}

// WithFlavors sets one level-1 note per value.
func WithFlavors(values ...string) RecordOption {
	return func(r *record.TastingRecord) {
		r.FlavorNotes = r.FlavorNotes[:0]
		for _, v := range values {
			r.FlavorNotes = append(r.FlavorNotes, record.FlavorNote{Level: 1, Value: v})
		}
	}
}

// WithRecipe switches the record to home_brew with the given method.
func WithRecipe(method string) RecordOption {
	return func(r *record.TastingRecord) {
		if r.Mode == record.ModeCafe {
			r.Mode = record.ModeHomeBrew
		}
		r.Recipe = &record.BrewRecipe{Method: method}
	}
}

func Deleted() RecordOption {
	return func(r *record.TastingRecord) { r.IsDeleted = true }
}
