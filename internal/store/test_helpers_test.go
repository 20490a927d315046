package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/brewlog/internal/record"
	"github.com/roach88/brewlog/internal/testutil"
)

var testEpoch = time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir with a
// stepping clock (one minute per Now call) and sequential ids.
func createTestStore(t *testing.T, opts ...Option) (*Store, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewSteppingClock(testEpoch, time.Minute)
	all := append([]Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewSequentialIDs("rec")),
	}, opts...)

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, all...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// testDraft creates a valid draft with minimal required fields.
func testDraft(roastery, coffee string, flavor, sensory int) record.Draft {
	return record.Draft{
		Roastery:     roastery,
		CoffeeName:   coffee,
		FlavorScore:  flavor,
		SensoryScore: sensory,
		FlavorNotes:  []record.FlavorNote{{Level: 1, Value: "Fruity"}},
	}
}
