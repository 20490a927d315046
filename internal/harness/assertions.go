package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/brewlog/internal/journal"
	"github.com/roach88/brewlog/internal/query"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Seq, event.Action, event.Args, event.Outcome)
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains a step matching the
// specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := normalizeMap(assertion.Args)
	if err != nil {
		return err
	}
	for _, event := range trace {
		if event.Action == assertion.Action && matchArgs(event.Args, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected action, 1-indexed.
	positions := make(map[string]int)
	for i, event := range trace {
		for _, expectedAction := range assertion.Actions {
			if event.Action == expectedAction && positions[expectedAction] == 0 {
				positions[expectedAction] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState selects exactly one row of the named state table and
// checks the expected fields with subset semantics.
func assertFinalState(ctx context.Context, svc *journal.Service, assertion Assertion) error {
	rows, err := stateRows(ctx, svc, assertion.Table)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("read table %s", assertion.Table),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	where, err := normalizeMap(assertion.Where)
	if err != nil {
		return err
	}
	var matched []map[string]any
	for _, row := range rows {
		if matchArgs(row, where) {
			matched = append(matched, row)
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	expected, err := normalizeMap(assertion.Expect)
	if err != nil {
		return err
	}
	row := matched[0]
	for _, key := range sortedKeys(expected) {
		actualValue, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in row: %v", key, sortedKeys(row)),
			}
		}
		if !valuesEqual(actualValue, expected[key]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expected[key]),
				Actual:   fmt.Sprintf("field %q = %v", key, actualValue),
			}
		}
	}

	return nil
}

// stateRows reads a state table as JSON-shaped rows.
func stateRows(ctx context.Context, svc *journal.Service, table string) ([]map[string]any, error) {
	var items []any
	switch table {
	case TableRecords:
		recs, err := svc.Query(ctx, query.Predicates{IncludeDeleted: true}, query.Options{Sort: query.SortCreatedAtDesc})
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			items = append(items, r)
		}
	case TableAchievements:
		list, err := svc.Achievements(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range list {
			items = append(items, a)
		}
	case TableDashboard:
		d, err := svc.Dashboard(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, err := normalizeMap(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchArgs checks if actual contains all expected keys with matching
// values. Nested objects match as subsets too; extra keys are ignored.
func matchArgs(actual map[string]any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	if actual == nil {
		return false
	}

	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares normalized values. Objects use subset semantics;
// arrays must have the same length with each element matching.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		return ok && matchArgs(act, exp)
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(act[i], exp[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(actual, expected)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Service *journal.Service
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Service == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires journal context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Service, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
