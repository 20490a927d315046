package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a journal scenario: steps run against a fresh journal
// and assertions checked against the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is an optional CUE catalogue path. Empty means the built-in
	// catalogue.
	Catalog string `yaml:"catalog,omitempty"`

	// Start is the store clock's first reading. The clock advances by
	// Step (default one minute) on every reading.
	Start time.Time     `yaml:"start"`
	Step  time.Duration `yaml:"step,omitempty"`

	// Now pins the journal's "now" for windows, insights and unlock
	// stamps. Zero means the store clock's next reading, without
	// advancing it.
	Now time.Time `yaml:"now,omitempty"`

	// Timezone is the IANA zone for calendar bucketing. Empty means UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// Setup steps establish initial state. Every setup step must succeed.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the steps under test, each with an optional expect
	// clause.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is one journal operation used in Setup.
type ActionStep struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args,omitempty"`
}

// FlowStep is one journal operation in the main flow.
type FlowStep struct {
	Invoke string         `yaml:"invoke"`
	Args   map[string]any `yaml:"args,omitempty"`

	// Expect specifies the expected outcome. Nil means the step must
	// succeed and its result is not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Case is the expected outcome: ok, validation, not_found or error.
	Case string `yaml:"case"`

	// Result is matched as a subset of the step's result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the action name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are matched as a subset of the step arguments (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Table is records, achievements or dashboard (final_state).
	Table string `yaml:"table,omitempty"`

	// Where selects exactly one row by subset match (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is matched as a subset of the selected row (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// State tables for final_state assertions.
const (
	TableRecords      = "records"
	TableAchievements = "achievements"
	TableDashboard    = "dashboard"
)

var outcomes = []string{OutcomeOK, OutcomeValidation, OutcomeNotFound, OutcomeError}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative catalog path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Start.IsZero() {
		return fmt.Errorf("start is required")
	}
	if s.Step < 0 {
		return fmt.Errorf("step must be non-negative")
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}

	for i, step := range s.Setup {
		if !isAction(step.Action) {
			return fmt.Errorf("setup[%d]: unknown action %q", i, step.Action)
		}
	}

	for i, step := range s.Flow {
		if !isAction(step.Invoke) {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Invoke)
		}
		if step.Expect != nil && !slices.Contains(outcomes, step.Expect.Case) {
			return fmt.Errorf("flow[%d].expect: case must be one of %v", i, outcomes)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		switch a.Table {
		case TableRecords, TableAchievements:
			if len(a.Where) == 0 {
				return fmt.Errorf("assertions[%d]: where is required for table %s", index, a.Table)
			}
		case TableDashboard:
		default:
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
