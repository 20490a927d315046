package catalog

import (
	"fmt"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateID          = "E201" // id reused within a list
	ErrTooFewExamples       = "E202" // fewer examples than the insight minimum
	ErrMissingEncouragement = "E203" // a fallback category has no encouragement
	ErrRequirementParam     = "E204" // requirement lacks a parameter its type needs
	ErrEmptyTemplate        = "E205" // rule template renders to nothing
	ErrTemplateExec         = "E206" // rule template fails on sample evidence
)

// MinInsights is the number of insights every evaluation returns.
const MinInsights = 3

// ValidationError represents a semantic catalogue error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks rules CUE cannot express. Returns all errors found
// (does not fail-fast).
func Validate(c *Catalog) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]int)
	for i, r := range c.Rules {
		if j, dup := seen[r.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("rules[%d].id", i),
				Message: fmt.Sprintf("duplicate rule id %q (first at rules[%d])", r.ID, j),
				Code:    ErrDuplicateID,
				Line:    r.Pos.Line(),
			})
			continue
		}
		seen[r.ID] = i

		if r.title != nil {
			title, detail, err := r.Render(Evidence{Metric: r.Metric, Subject: "x", Window: "week", Count: 1})
			if err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("rules[%d]", i),
					Message: err.Error(),
					Code:    ErrTemplateExec,
					Line:    r.Pos.Line(),
				})
			} else if title == "" || detail == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("rules[%d]", i),
					Message: "title and detail must render non-empty",
					Code:    ErrEmptyTemplate,
					Line:    r.Pos.Line(),
				})
			}
		}
	}

	errs = append(errs, uniqueIDs("encouragements", c.Encouragements)...)
	errs = append(errs, uniqueIDs("examples", c.Examples)...)

	if len(c.Examples) < MinInsights {
		errs = append(errs, ValidationError{
			Field:   "examples",
			Message: fmt.Sprintf("need at least %d examples, have %d", MinInsights, len(c.Examples)),
			Code:    ErrTooFewExamples,
		})
	}

	covered := make(map[string]bool)
	for _, m := range c.Encouragements {
		covered[m.Category] = true
	}
	for _, cat := range FallbackOrder[:MinInsights] {
		if !covered[cat] {
			errs = append(errs, ValidationError{
				Field:   "encouragements",
				Message: fmt.Sprintf("no encouragement for category %q", cat),
				Code:    ErrMissingEncouragement,
			})
		}
	}

	achSeen := make(map[string]bool)
	for i, a := range c.Achievements {
		field := fmt.Sprintf("achievements[%d]", i)
		if achSeen[a.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate achievement id %q", a.ID),
				Code:    ErrDuplicateID,
			})
		}
		achSeen[a.ID] = true

		req := a.Requirement
		switch req.Type {
		case ReqModeCount:
			if req.Mode == "" {
				errs = append(errs, ValidationError{
					Field:   field + ".requirement.mode",
					Message: "mode_count requires mode",
					Code:    ErrRequirementParam,
				})
			}
		case ReqEarlyTasting, ReqLateTasting:
			if req.Hour == nil {
				errs = append(errs, ValidationError{
					Field:   field + ".requirement.hour",
					Message: req.Type + " requires hour",
					Code:    ErrRequirementParam,
				})
			}
		case ReqMonthlyQuality:
			if req.MinScore == 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".requirement.min_score",
					Message: "monthly_quality requires min_score",
					Code:    ErrRequirementParam,
				})
			}
		}
	}

	return errs
}

func uniqueIDs(list string, msgs []Message) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, m := range msgs {
		if seen[m.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].id", list, i),
				Message: fmt.Sprintf("duplicate id %q", m.ID),
				Code:    ErrDuplicateID,
			})
		}
		seen[m.ID] = true
	}
	return errs
}
