package query

import (
	"strings"
	"time"

	"github.com/roach88/brewlog/internal/record"
)

// Predicate is a sealed interface for record conditions.
type Predicate interface {
	predicateNode()
}

// Text matches when the normalized needle is a substring of any of the
// normalized coffee name, roastery, cafe name or origin.
type Text struct {
	Needle string // already normalized
}

func (Text) predicateNode() {}

// Roastery matches an exact roastery name.
type Roastery struct {
	Name string
}

func (Roastery) predicateNode() {}

// Cafe matches an exact cafe name.
type Cafe struct {
	Name string
}

func (Cafe) predicateNode() {}

// ScoreRange matches Min <= total <= Max. Nil bounds are open.
type ScoreRange struct {
	Min *int
	Max *int
}

func (ScoreRange) predicateNode() {}

// DateRange matches From <= createdAt <= To. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (DateRange) predicateNode() {}

// FlavorAny matches when any level-1 flavor equals any of Values after
// normalization.
type FlavorAny struct {
	Values []string // already normalized
}

func (FlavorAny) predicateNode() {}

// ModeIn matches any of the listed modes.
type ModeIn struct {
	Modes []record.Mode
}

func (ModeIn) predicateNode() {}

// And represents a conjunction of predicates. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Match evaluates p against r.
func Match(p Predicate, r record.TastingRecord) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case And:
		for _, child := range pred.Predicates {
			if !Match(child, r) {
				return false
			}
		}
		return true
	case Text:
		if pred.Needle == "" {
			return true
		}
		for _, field := range []string{r.CoffeeName, r.Roastery, r.CafeName, r.Origin} {
			if field != "" && strings.Contains(Normalize(field), pred.Needle) {
				return true
			}
		}
		return false
	case Roastery:
		return r.Roastery == pred.Name
	case Cafe:
		return r.CafeName == pred.Name
	case ScoreRange:
		if pred.Min != nil && r.Scores.Total < *pred.Min {
			return false
		}
		if pred.Max != nil && r.Scores.Total > *pred.Max {
			return false
		}
		return true
	case DateRange:
		if !pred.From.IsZero() && r.CreatedAt.Before(pred.From) {
			return false
		}
		if !pred.To.IsZero() && r.CreatedAt.After(pred.To) {
			return false
		}
		return true
	case FlavorAny:
		if len(pred.Values) == 0 {
			return true
		}
		for _, flavor := range r.TopFlavors() {
			n := Normalize(flavor)
			for _, want := range pred.Values {
				if n == want {
					return true
				}
			}
		}
		return false
	case ModeIn:
		if len(pred.Modes) == 0 {
			return true
		}
		for _, m := range pred.Modes {
			if r.Mode == m {
				return true
			}
		}
		return false
	default:
		// Unreachable: Predicate is sealed.
		return false
	}
}

// unsatisfiable reports whether p can never match, e.g. an inverted range.
func unsatisfiable(p Predicate) bool {
	switch pred := p.(type) {
	case And:
		for _, child := range pred.Predicates {
			if unsatisfiable(child) {
				return true
			}
		}
	case DateRange:
		return !pred.From.IsZero() && !pred.To.IsZero() && pred.From.After(pred.To)
	case ScoreRange:
		return pred.Min != nil && pred.Max != nil && *pred.Min > *pred.Max
	}
	return false
}
