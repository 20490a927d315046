package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brewlog/internal/record"
)

func seedThree(t *testing.T, s *Store) []record.TastingRecord {
	t.Helper()
	ctx := context.Background()

	a := testDraft("Fritz", "Colombia Geisha", 90, 80)
	b := testDraft("Onyx", "Ethiopia Guji", 85, 85)
	b.Mode = record.ModeHomeBrew
	c := testDraft("Fritz", "Kenya AA", 70, 70)

	var out []record.TastingRecord
	for _, d := range []record.Draft{a, b, c} {
		r, err := s.Create(ctx, d)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func ids(recs []record.TastingRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestGetByID_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, record.IsNotFound(err))
}

func TestList_EmptyStoreReturnsEmptySlice(t *testing.T) {
	s, _ := createTestStore(t)

	got, err := s.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_InsertionOrderAndFilters(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	recs := seedThree(t, s)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, ids(recs), ids(all))

	fritz, err := s.List(ctx, Filter{Roastery: "Fritz"})
	require.NoError(t, err)
	assert.Equal(t, []string{recs[0].ID, recs[2].ID}, ids(fritz))

	home, err := s.List(ctx, Filter{Mode: record.ModeHomeBrew})
	require.NoError(t, err)
	assert.Equal(t, []string{recs[1].ID}, ids(home))

	window, err := s.List(ctx, Filter{From: recs[1].CreatedAt, To: recs[2].CreatedAt})
	require.NoError(t, err)
	assert.Equal(t, []string{recs[1].ID, recs[2].ID}, ids(window))

	limited, err := s.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestList_ExcludesDeletedByDefault(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	recs := seedThree(t, s)

	require.NoError(t, s.SoftDelete(ctx, recs[1].ID))

	live, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{recs[0].ID, recs[2].ID}, ids(live))

	everything, err := s.List(ctx, Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, ids(recs), ids(everything))
	assert.True(t, everything[1].IsDeleted)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSnapshot_RecordsMatchVersion(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	empty, v0, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, s.Version(), v0)

	recs := seedThree(t, s)
	require.NoError(t, s.SoftDelete(ctx, recs[0].ID))

	live, v, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{recs[1].ID, recs[2].ID}, ids(live))
	assert.Equal(t, s.Version(), v)
	assert.Equal(t, v0+4, v)
}

func TestAll_LazyAndRestartable(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	recs := seedThree(t, s)

	seq := s.All(ctx, false)

	// Records created after the sequence was obtained are seen, because
	// the snapshot is taken when iteration starts.
	late, err := s.Create(ctx, testDraft("Late", "Coffee", 50, 50))
	require.NoError(t, err)

	var first []string
	for r := range seq {
		first = append(first, r.ID)
	}
	assert.Equal(t, append(ids(recs), late.ID), first)

	var second []string
	for r := range seq {
		second = append(second, r.ID)
	}
	assert.Equal(t, first, second, "sequence must be restartable")

	var partial []string
	for r := range seq {
		partial = append(partial, r.ID)
		if len(partial) == 2 {
			break
		}
	}
	assert.Len(t, partial, 2)
}

func TestAll_IncludeDeleted(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	recs := seedThree(t, s)
	require.NoError(t, s.SoftDelete(ctx, recs[0].ID))

	var live, all int
	for range s.All(ctx, false) {
		live++
	}
	for range s.All(ctx, true) {
		all++
	}
	assert.Equal(t, 2, live)
	assert.Equal(t, 3, all)
}

func TestAll_ReturnsCopies(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	recs := seedThree(t, s)

	for r := range s.All(ctx, false) {
		r.FlavorNotes[0].Value = "Mutated"
		r.Roastery = "Mutated"
	}

	got, err := s.GetByID(ctx, recs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Fritz", got.Roastery)
	assert.Equal(t, "Fruity", got.FlavorNotes[0].Value)
}

func TestPending_IncludesDeletedRecords(t *testing.T) {
	s, _ := createTestStore(t, WithSyncEnabled(true))
	ctx := context.Background()
	recs := seedThree(t, s)

	applied, err := s.SetSyncStatus(ctx, recs[0].ID, record.SyncSynced, recs[0].UpdatedAt)
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, s.SoftDelete(ctx, recs[2].ID))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{recs[1].ID, recs[2].ID}, ids(pending))
	assert.True(t, pending[1].IsDeleted)
}

func TestList_DateRangeIsInclusive(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	recs := seedThree(t, s)

	exact, err := s.List(ctx, Filter{From: recs[0].CreatedAt, To: recs[0].CreatedAt})
	require.NoError(t, err)
	assert.Equal(t, []string{recs[0].ID}, ids(exact))

	none, err := s.List(ctx, Filter{From: testEpoch.Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, none)
}
