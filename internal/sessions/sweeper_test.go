package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSweeper_RunOnce(t *testing.T) {
	clock := newFakeClock()
	repo := NewMemoryRepository()
	store := NewStore(repo, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, alice, time.Hour)
		require.NoError(t, err)
	}
	keep, err := store.Create(ctx, alice, 10*time.Hour)
	require.NoError(t, err)

	sw := NewSweeper(store, time.Minute)
	require.Zero(t, sw.RunOnce(ctx))

	clock.Advance(time.Hour)
	// expires_at == now counts as past for the sweep
	require.Equal(t, int64(3), sw.RunOnce(ctx))

	n, err := repo.CountByUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	_, err = store.Get(ctx, keep.Token)
	require.NoError(t, err)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := NewStore(NewMemoryRepository())
	_, err := store.Create(context.Background(), alice, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewSweeper(store, 5*time.Millisecond).Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeper_BackendErrorDoesNotPanic(t *testing.T) {
	sw := NewSweeper(NewStore(&brokenRepo{}), 0)
	require.Equal(t, time.Hour, sw.interval)
	require.Zero(t, sw.RunOnce(context.Background()))
}
