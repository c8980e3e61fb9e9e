package sales

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBoard_Defaults(t *testing.T) {
	b := NewBoard(0, 0, nil)
	snap := b.Snapshot()
	assert.Equal(t, DefaultExchangeRate, snap.Rate)
	assert.Empty(t, snap.Sales)
	assert.Empty(t, snap.Returns)
}

func TestBoard_SnapshotsAreReplacedWhole(t *testing.T) {
	b := NewBoard(5.8, time.Second, zaptest.NewLogger(t))
	before := b.Snapshot()

	b.SetSales([]*Sale{{ID: "s1"}})
	after := b.Snapshot()

	assert.Empty(t, before.Sales, "published snapshots are never mutated")
	require.Len(t, after.Sales, 1)

	b.SetRate(6.1, true)
	assert.Equal(t, 6.1, b.Snapshot().Rate)
	assert.Len(t, b.Snapshot().Sales, 1, "rate update keeps the sales list")

	b.SetRate(0, false)
	assert.Equal(t, 5.8, b.Snapshot().Rate, "missing rate falls back to the default")
}

func TestBoard_RunFollowsFeed(t *testing.T) {
	store := NewLocalStorage()
	require.NoError(t, store.PutSale(&Sale{ID: "s1", ItemName: "Bag"}))

	b := NewBoard(5.8, 10*time.Millisecond, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, store) }()

	require.Eventually(t, func() bool { return len(b.Snapshot().Sales) == 1 }, time.Second, 5*time.Millisecond)

	store.SetRate(6)
	require.NoError(t, store.PutSale(&Sale{ID: "s2"}))
	require.NoError(t, store.UpsertReturn(ctx, "s1", ReturnPatch{}))

	require.Eventually(t, func() bool {
		snap := b.Snapshot()
		return snap.Rate == 6 && len(snap.Sales) == 2 && len(snap.Returns) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// flakyFeed fails the first sales subscription, then behaves like store.
type flakyFeed struct {
	*LocalStorage
	calls atomic.Int32
}

func (f *flakyFeed) WatchSales(ctx context.Context, fn func([]*Sale)) error {
	if f.calls.Add(1) == 1 {
		return errors.New("stream reset")
	}
	return f.LocalStorage.WatchSales(ctx, fn)
}

func TestBoard_ResubscribesAfterFailure(t *testing.T) {
	feed := &flakyFeed{LocalStorage: NewLocalStorage()}
	require.NoError(t, feed.PutSale(&Sale{ID: "s1"}))

	b := NewBoard(5.8, 10*time.Millisecond, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx, feed)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(b.Snapshot().Sales) == 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, feed.calls.Load(), int32(2))

	cancel()
	<-done
}
