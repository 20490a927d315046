// Package catalog loads the declarative insight and achievement catalogue.
//
// The catalogue is a CUE document with four lists: rules, encouragements,
// examples and achievements. It is unified with an embedded schema, so
// shape errors (unknown metric, missing title, priority out of range) are
// reported by CUE with source positions. Semantic checks CUE cannot
// express (unique ids, template syntax, fallback coverage) run afterwards
// in Validate.
//
// List order is declaration order and is preserved everywhere; the
// insight engine uses it as its final tie-break.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"
	"text/template"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed default.cue
var defaultSource []byte

// Insight categories. Backfill prefers them in FallbackOrder.
const (
	CategoryFlavor    = "flavor"
	CategoryScore     = "score"
	CategoryDiscovery = "discovery"
	CategoryHabit     = "habit"
)

// FallbackOrder is the category preference when padding insights.
var FallbackOrder = []string{CategoryFlavor, CategoryScore, CategoryDiscovery, CategoryHabit}

// Metric names understood by the insight engine.
const (
	MetricTastingCount     = "tasting_count"
	MetricAverageScore     = "average_score"
	MetricBestScore        = "best_score"
	MetricUniqueRoasteries = "unique_roasteries"
	MetricUniqueOrigins    = "unique_origins"
	MetricTopFlavorShare   = "top_flavor_share"
	MetricTopRoasteryCount = "top_roastery_count"
	MetricScoreTrend       = "score_trend"
	MetricHomeBrewShare    = "home_brew_share"
)

// Scopes select which records a rule sees.
const (
	ScopeRecent = "recent"
	ScopeFull   = "full"
)

// Requirement types understood by the achievement engine.
const (
	ReqTastingCount      = "tasting_count"
	ReqUniqueFlavors     = "unique_flavors"
	ReqUniqueCoffees     = "unique_coffees"
	ReqModeCount         = "mode_count"
	ReqWeeklyVariety     = "weekly_variety"
	ReqBestScore         = "best_score"
	ReqEarlyTasting      = "early_tasting"
	ReqLateTasting       = "late_tasting"
	ReqMonthlyQuality    = "monthly_quality"
	ReqBrewMethodVariety = "brew_method_variety"
	ReqWeekendCount      = "weekend_count"
)

// Rule is one insight rule. Title and Detail are text/template sources
// rendered over Evidence.
type Rule struct {
	ID        string  `json:"id"`
	Category  string  `json:"category"`
	Icon      string  `json:"icon"`
	Scope     string  `json:"scope"`
	Metric    string  `json:"metric"`
	Op        string  `json:"op"`
	Threshold float64 `json:"threshold"`
	Priority  int     `json:"priority"`
	Title     string  `json:"title"`
	Detail    string  `json:"detail"`
	Trend     string  `json:"trend,omitempty"`

	Pos token.Pos `json:"-"`

	title  *template.Template
	detail *template.Template
}

// Holds applies the rule's comparison to value.
func (r Rule) Holds(value float64) bool {
	switch r.Op {
	case ">=":
		return value >= r.Threshold
	case ">":
		return value > r.Threshold
	case "<=":
		return value <= r.Threshold
	case "<":
		return value < r.Threshold
	case "==":
		return value == r.Threshold
	}
	return false
}

// Evidence is the data a rule message is rendered over.
type Evidence struct {
	Metric    string
	Value     float64
	Threshold float64
	Count     int
	Subject   string
	Window    string
}

// Render instantiates the rule's title and detail templates.
func (r Rule) Render(ev Evidence) (title, detail string, err error) {
	if r.title == nil || r.detail == nil {
		return "", "", fmt.Errorf("catalog: rule %s: templates not compiled", r.ID)
	}
	var buf bytes.Buffer
	if err := r.title.Execute(&buf, ev); err != nil {
		return "", "", fmt.Errorf("catalog: rule %s: title: %w", r.ID, err)
	}
	title = buf.String()
	buf.Reset()
	if err := r.detail.Execute(&buf, ev); err != nil {
		return "", "", fmt.Errorf("catalog: rule %s: detail: %w", r.ID, err)
	}
	return title, buf.String(), nil
}

// Message is a fixed encouragement or example entry.
type Message struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Icon     string `json:"icon"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Trend    string `json:"trend,omitempty"`
}

// Requirement parameterizes an achievement's progress function.
type Requirement struct {
	Type     string `json:"type"`
	Value    int    `json:"value"`
	Hour     *int   `json:"hour,omitempty"`
	Mode     string `json:"mode,omitempty"`
	MinScore int    `json:"min_score,omitempty"`
}

// Achievement is one achievement definition.
type Achievement struct {
	ID          string      `json:"id"`
	Category    string      `json:"category"`
	Rarity      string      `json:"rarity"`
	Icon        string      `json:"icon"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Requirement Requirement `json:"requirement"`
}

// Catalog is a compiled, validated catalogue.
type Catalog struct {
	Rules          []Rule
	Encouragements []Message
	Examples       []Message
	Achievements   []Achievement
}

// Default returns the embedded catalogue. It is compiled once.
var Default = sync.OnceValues(func() (*Catalog, error) {
	return Load(defaultSource, "default.cue")
})

// LoadFile compiles the catalogue at path.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return Load(src, path)
}

// Load compiles src against the embedded schema and validates the result.
// filename is used only for error positions.
func Load(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	c, err := Compile(v)
	if err != nil {
		return nil, err
	}
	if errs := Validate(c); len(errs) > 0 {
		return nil, &LoadError{Errors: errs}
	}
	return c, nil
}

// Compile extracts a Catalog from a unified CUE value and compiles rule
// templates. It does not run Validate.
func Compile(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &Catalog{}
	var err error
	if c.Rules, err = decodeList[Rule](v, "rules"); err != nil {
		return nil, err
	}
	if c.Encouragements, err = decodeList[Message](v, "encouragements"); err != nil {
		return nil, err
	}
	if c.Examples, err = decodeList[Message](v, "examples"); err != nil {
		return nil, err
	}
	if c.Achievements, err = decodeList[Achievement](v, "achievements"); err != nil {
		return nil, err
	}

	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Scope == "" {
			r.Scope = ScopeRecent
		}
		if r.title, err = parseTemplate(r.ID+".title", r.Title); err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("rules[%d].title", i), Message: err.Error(), Pos: r.Pos}
		}
		if r.detail, err = parseTemplate(r.ID+".detail", r.Detail); err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("rules[%d].detail", i), Message: err.Error(), Pos: r.Pos}
		}
	}
	return c, nil
}

// decodeList decodes the list at path element by element. A missing list
// decodes as empty.
func decodeList[T any](v cue.Value, path string) ([]T, error) {
	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []T
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		var item T
		if err := elem.Decode(&item); err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s[%d]", path, i),
				Message: err.Error(),
				Pos:     elem.Pos(),
			}
		}
		if r, ok := any(&item).(*Rule); ok {
			r.Pos = elem.Pos()
		}
		out = append(out, item)
	}
	return out, nil
}
