package record

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// draftValidate is the validator instance for drafts. Custom tags and the
// struct-level cross-field rules are registered once in init.
var draftValidate *validator.Validate

func init() {
	draftValidate = validator.New(validator.WithRequiredStructEnabled())

	draftValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	if err := draftValidate.RegisterValidation("score", validateScore); err != nil {
		panic(fmt.Sprintf("record: register score validator: %v", err))
	}
	if err := draftValidate.RegisterValidation("flavorpath", validateFlavorPath); err != nil {
		panic(fmt.Sprintf("record: register flavorpath validator: %v", err))
	}
	draftValidate.RegisterStructValidation(validateDraftStruct, Draft{})
}

// validateScore enforces MinScore <= v <= MaxScore.
func validateScore(fl validator.FieldLevel) bool {
	v := fl.Field().Int()
	return v >= MinScore && v <= MaxScore
}

// validateFlavorPath enforces taxonomy-path consistency: a note at level
// N>1 requires a note at level N-1 somewhere in the same record.
func validateFlavorPath(fl validator.FieldLevel) bool {
	notes, ok := fl.Field().Interface().([]FlavorNote)
	if !ok {
		return false
	}
	return FlavorPathError(notes) == ""
}

// FlavorPathError returns a description of the first taxonomy-path
// violation in notes, or "" when the path is consistent.
func FlavorPathError(notes []FlavorNote) string {
	var levels [5]bool
	for _, n := range notes {
		if n.Level >= 1 && n.Level <= 4 {
			levels[n.Level] = true
		}
	}
	for i, n := range notes {
		if n.Level > 1 && n.Level <= 4 && !levels[n.Level-1] {
			return fmt.Sprintf("note %d (%q) at level %d has no parent at level %d", i, n.Value, n.Level, n.Level-1)
		}
	}
	return ""
}

// validateDraftStruct carries the cross-field rules: mode-specific
// sub-structures and agreement between a supplied total and its
// components.
func validateDraftStruct(sl validator.StructLevel) {
	d := sl.Current().Interface().(Draft)

	switch d.Mode {
	case ModeCafe:
		if d.Recipe != nil {
			sl.ReportError(d.Recipe, "recipe", "Recipe", "mode_excluded", string(d.Mode))
		}
		if d.Lab != nil {
			sl.ReportError(d.Lab, "lab", "Lab", "mode_excluded", string(d.Mode))
		}
	case ModeHomeBrew:
		if d.Lab != nil {
			sl.ReportError(d.Lab, "lab", "Lab", "mode_excluded", string(d.Mode))
		}
	}

	if d.TotalScore != nil {
		if want := ComposeTotal(d.FlavorScore, d.SensoryScore); *d.TotalScore != want {
			sl.ReportError(*d.TotalScore, "total_score", "TotalScore", "composition", fmt.Sprint(want))
		}
	}
}

// Validate checks a normalized draft. It returns nil or a
// *ValidationError listing every failing field.
func Validate(d Draft) error {
	err := draftValidate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("record: validate: %w", err)
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// fieldPath drops the root type name from the namespace:
// "Draft.flavor_notes[1].level" becomes "flavor_notes[1].level".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "score":
		return fmt.Sprintf("must be between %d and %d", MinScore, MaxScore)
	case "flavorpath":
		if notes, ok := fe.Value().([]FlavorNote); ok {
			if msg := FlavorPathError(notes); msg != "" {
				return msg
			}
		}
		return "flavor notes do not form a taxonomy path"
	case "mode_excluded":
		return fmt.Sprintf("not allowed for mode %s", fe.Param())
	case "composition":
		return fmt.Sprintf("must equal round(0.6*flavor + 0.4*sensory) = %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
