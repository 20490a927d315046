// Package harness runs journal scenarios written in YAML.
//
// Each scenario runs against a fresh in-memory store with a stepping clock
// and sequential record ids ("rec-0001", ...), through the same journal
// service the CLI uses. Steps produce real outcomes; nothing is
// manufactured from the expectations.
//
// # Scenario Format
//
//	name: first_week
//	description: "Three coffees in a week unlock Weekly Explorer"
//	start: 2026-05-04T08:30:00Z   # store clock; advances by step (default 1m)
//	now: 2026-05-10T12:00:00Z     # optional fixed journal "now"
//	timezone: Asia/Seoul          # optional, default UTC
//	catalog: rules.cue            # optional, default built-in catalogue
//	setup:
//	  - action: add
//	    args: { roastery: Onyx, coffee_name: Geisha, flavor_score: 90, sensory_score: 80 }
//	flow:
//	  - invoke: query
//	    args: { text: geisha }
//	    expect:
//	      case: ok
//	      result: { ids: [rec-0001] }
//	assertions:
//	  - type: trace_count
//	    action: add
//	    count: 1
//	  - type: final_state
//	    table: records
//	    where: { id: rec-0001 }
//	    expect: { is_deleted: false }
//
// Actions are add, import, get, update, delete, restore, purge, query,
// dashboard, compare, insights and achievements. Outcomes are ok,
// validation, not_found and error.
//
// # Assertion Types
//
//   - trace_contains: a step with the action and matching args exists
//   - trace_order: actions appear in the given order
//   - trace_count: the action appears exactly N times
//   - final_state: one row of records, achievements or dashboard matches
//
// # Golden Files
//
// RunWithGolden compares the trace with testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
