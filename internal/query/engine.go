package query

import (
	"iter"
	"slices"
	"time"

	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/store"
)

// Predicates is the caller-facing predicate set. Zero fields mean "no
// constraint"; all set fields must hold (AND).
type Predicates struct {
	Text           string
	Roastery       string
	CafeName       string
	MinScore       *int
	MaxScore       *int
	From           time.Time
	To             time.Time
	Flavors        []string
	Modes          []record.Mode
	IncludeDeleted bool
}

// IsEmpty reports whether p constrains nothing beyond excluding deleted
// records.
func (p Predicates) IsEmpty() bool {
	return Normalize(p.Text) == "" && p.Roastery == "" && p.CafeName == "" &&
		p.MinScore == nil && p.MaxScore == nil &&
		p.From.IsZero() && p.To.IsZero() &&
		len(p.Flavors) == 0 && len(p.Modes) == 0
}

// Compile lowers p to a predicate tree. The deleted-record filter is not
// part of the tree; Run applies it separately.
func (p Predicates) Compile() Predicate {
	var preds []Predicate
	if needle := Normalize(p.Text); needle != "" {
		preds = append(preds, Text{Needle: needle})
	}
	if p.Roastery != "" {
		preds = append(preds, Roastery{Name: p.Roastery})
	}
	if p.CafeName != "" {
		preds = append(preds, Cafe{Name: p.CafeName})
	}
	if p.MinScore != nil || p.MaxScore != nil {
		preds = append(preds, ScoreRange{Min: p.MinScore, Max: p.MaxScore})
	}
	if !p.From.IsZero() || !p.To.IsZero() {
		preds = append(preds, DateRange{From: p.From, To: p.To})
	}
	if len(p.Flavors) > 0 {
		values := make([]string, 0, len(p.Flavors))
		for _, f := range p.Flavors {
			if n := Normalize(f); n != "" {
				values = append(values, n)
			}
		}
		if len(values) > 0 {
			preds = append(preds, FlavorAny{Values: values})
		}
	}
	if len(p.Modes) > 0 {
		preds = append(preds, ModeIn{Modes: slices.Clone(p.Modes)})
	}
	return And{Predicates: preds}
}

// SortOrder selects the result ordering.
type SortOrder string

const (
	SortCreatedAtDesc SortOrder = "created_at_desc"
	SortScoreDesc     SortOrder = "score_desc"
)

// Options controls ordering and pagination. Zero Limit means unlimited.
// Pagination applies after sorting.
type Options struct {
	Sort   SortOrder
	Limit  int
	Offset int
}

// Run filters records by p and orders them per opts. The result is a new
// slice; input records are copied, never aliased. Empty input or an
// unsatisfiable predicate yields an empty, non-nil slice.
func Run(records iter.Seq[record.TastingRecord], p Predicates, opts Options) []record.TastingRecord {
	out := make([]record.TastingRecord, 0)
	if records == nil {
		return out
	}
	// An empty set of predicates only filters deleted records.
	var tree Predicate
	if !p.IsEmpty() {
		tree = p.Compile()
		if unsatisfiable(tree) {
			return out
		}
	}

	for r := range records {
		if r.IsDeleted && !p.IncludeDeleted {
			continue
		}
		if tree != nil && !Match(tree, r) {
			continue
		}
		out = append(out, r.Clone())
	}

	Sort(out, opts.Sort)
	return paginate(out, opts.Limit, opts.Offset)
}

// Sort orders records in place. The sort is stable, so records that tie
// keep their input order.
func Sort(records []record.TastingRecord, order SortOrder) {
	switch order {
	case SortScoreDesc:
		slices.SortStableFunc(records, func(a, b record.TastingRecord) int {
			return b.Scores.Total - a.Scores.Total
		})
	default:
		slices.SortStableFunc(records, func(a, b record.TastingRecord) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}

func paginate(records []record.TastingRecord, limit, offset int) []record.TastingRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return records[:0]
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

// Pushdown extracts the parts of p the store can evaluate in SQL. The
// returned filter only narrows; Run must still evaluate the full tree
// over the rows it yields.
func Pushdown(p Predicates) store.Filter {
	f := store.Filter{
		IncludeDeleted: p.IncludeDeleted,
		Roastery:       p.Roastery,
		From:           p.From,
		To:             p.To,
	}
	if len(p.Modes) == 1 {
		f.Mode = p.Modes[0]
	}
	return f
}
