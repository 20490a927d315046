package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brewlog/internal/record"
)

func TestWatch_ReceivesVersionAfterCommit(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Watch()
	defer cancel()

	r, err := s.Create(ctx, testDraft("Fritz", "Geisha", 80, 80))
	require.NoError(t, err)

	select {
	case v := <-ch:
		assert.Equal(t, uint64(1), v)
	case <-time.After(time.Second):
		t.Fatal("no version notification")
	}

	// The record is visible by the time the notification arrives.
	got, err := s.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestWatch_CoalescesToLatest(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Watch()
	defer cancel()

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, testDraft("Fritz", "Geisha", 80, 80))
		require.NoError(t, err)
	}

	select {
	case v := <-ch:
		assert.Equal(t, uint64(5), v, "a slow reader sees only the newest version")
	default:
		t.Fatal("expected a buffered notification")
	}

	select {
	case v := <-ch:
		t.Fatalf("unexpected extra notification %d", v)
	default:
	}
}

func TestWatch_NoNotificationForNoop(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	r, err := s.Create(ctx, testDraft("Fritz", "Geisha", 80, 80))
	require.NoError(t, err)
	require.NoError(t, s.SoftDelete(ctx, r.ID))

	ch, cancel := s.Watch()
	defer cancel()

	require.NoError(t, s.SoftDelete(ctx, r.ID))
	_, err = s.Update(ctx, r.ID, record.Patch{})
	require.Error(t, err)

	select {
	case v := <-ch:
		t.Fatalf("no-op and failed mutations must not notify, got %d", v)
	default:
	}
}

func TestWatch_CancelClosesChannel(t *testing.T) {
	s, _ := createTestStore(t)

	ch, cancel := s.Watch()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestWatch_CloseStoreClosesWatchers(t *testing.T) {
	s, _ := createTestStore(t)

	ch, cancel := s.Watch()
	defer cancel()
	require.NoError(t, s.Close())

	_, ok := <-ch
	assert.False(t, ok)

	late, lateCancel := s.Watch()
	defer lateCancel()
	_, ok = <-late
	assert.False(t, ok, "watching a closed store yields a closed channel")
}
