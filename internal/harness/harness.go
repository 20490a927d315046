package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/journal"
	"github.com/roach88/brewlog/internal/store"
	"github.com/roach88/brewlog/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs every step through a real journal service on a fresh in-memory
// store with a deterministic clock and sequential record ids.
type Harness struct {
	store  *store.Store
	svc    *journal.Service
	clock  *testutil.ManualClock
	now    func() time.Time
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Open a fresh in-memory database
//  2. Load the catalogue and build the journal
//  3. Execute setup steps; any failure aborts the run
//  4. Execute flow steps and check their expect clauses
//  5. Evaluate assertions against the trace and final state
//
// The error return is reserved for scenarios that cannot run at all;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, clock, err := openStore(scenario)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	loc := time.UTC
	if scenario.Timezone != "" {
		if loc, err = time.LoadLocation(scenario.Timezone); err != nil {
			return nil, err
		}
	}

	now := clock.Peek
	if !scenario.Now.IsZero() {
		fixed := scenario.Now
		now = func() time.Time { return fixed }
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store: st,
		svc: journal.New(st, cat,
			journal.WithLocation(loc),
			journal.WithClock(now),
			journal.WithLogger(logger),
		),
		clock:  clock,
		now:    now,
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Service: h.svc,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func openStore(scenario *Scenario) (*store.Store, *testutil.ManualClock, error) {
	step := scenario.Step
	if step == 0 {
		step = time.Minute
	}
	clock := testutil.NewSteppingClock(scenario.Start, step)
	st, err := store.Open(":memory:",
		store.WithClock(clock),
		store.WithIDGenerator(testutil.NewSequentialIDs("rec")),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	return st, clock, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

// executeSetup runs all setup steps. Setup steps must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		ev, err := h.step(ctx, "setup", step.Action, step.Args, result)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if ev.Outcome != OutcomeOK {
			return fmt.Errorf("setup step %d (%s): %s: %s", i, step.Action, ev.Outcome, ev.Error)
		}
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses against
// what the journal actually returned.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		ev, err := h.step(ctx, "flow", step.Invoke, step.Args, result)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		want := &ExpectClause{Case: OutcomeOK}
		if step.Expect != nil {
			want = step.Expect
		}
		if ev.Outcome != want.Case {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected %s, got %s %s", i, step.Invoke, want.Case, ev.Outcome, ev.Error))
			continue
		}
		if want.Result != nil {
			expected, err := normalizeMap(want.Result)
			if err != nil {
				return fmt.Errorf("flow step %d: expected result: %w", i, err)
			}
			if !matchArgs(ev.Result, expected) {
				result.AddError(fmt.Sprintf("flow[%d] %s: result %v does not contain %v", i, step.Invoke, ev.Result, expected))
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"outcome", ev.Outcome,
		)
	}
	return nil
}

// step executes one action and appends it to the trace.
func (h *Harness) step(ctx context.Context, phase, action string, args map[string]any, result *Result) (TraceEvent, error) {
	normArgs, err := normalizeMap(args)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("args: %w", err)
	}

	out, runErr := h.execute(ctx, action, args)
	var ae *argsError
	if errors.As(runErr, &ae) {
		return TraceEvent{}, runErr
	}

	ev := TraceEvent{
		Phase:   phase,
		Action:  action,
		Args:    normArgs,
		Outcome: outcomeOf(runErr),
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	} else if ev.Result, err = normalizeMap(out); err != nil {
		return TraceEvent{}, fmt.Errorf("result: %w", err)
	}
	return result.addTrace(ev), nil
}
