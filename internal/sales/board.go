package sales

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshot is the live state as of the last update. It is never mutated
// after it has been published.
type Snapshot struct {
	Sales   []*Sale
	Returns []*Return
	Rate    float64
}

// Board owns the live lists pushed by a Feed. Every update publishes a new
// Snapshot, so readers see either the previous or the next state.
type Board struct {
	current     atomic.Pointer[Snapshot]
	mu          sync.Mutex // serializes publishers
	defaultRate float64
	retry       time.Duration
	logger      *zap.Logger
}

// NewBoard creates a Board with empty lists and the default exchange rate.
func NewBoard(defaultRate float64, retry time.Duration, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultRate <= 0 {
		defaultRate = DefaultExchangeRate
	}
	if retry <= 0 {
		retry = time.Second
	}
	b := &Board{defaultRate: defaultRate, retry: retry, logger: logger}
	b.current.Store(&Snapshot{Rate: defaultRate})
	return b
}

// Snapshot returns the current state.
func (b *Board) Snapshot() *Snapshot {
	return b.current.Load()
}

// SetSales replaces the sales list.
func (b *Board) SetSales(list []*Sale) {
	b.publish(func(s *Snapshot) { s.Sales = list })
}

// SetReturns replaces the returns list.
func (b *Board) SetReturns(list []*Return) {
	b.publish(func(s *Snapshot) { s.Returns = list })
}

// SetRate replaces the exchange rate. A missing or non-positive rate falls
// back to the default.
func (b *Board) SetRate(rate float64, ok bool) {
	if !ok || rate <= 0 {
		rate = b.defaultRate
	}
	b.publish(func(s *Snapshot) { s.Rate = rate })
}

func (b *Board) publish(change func(*Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := *b.current.Load()
	change(&next)
	b.current.Store(&next)
}

// Run subscribes to every collection of feed and keeps the board current
// until ctx is done. All subscriptions are released before Run returns.
func (b *Board) Run(ctx context.Context, feed Feed) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.follow(ctx, "transactions", func(ctx context.Context) error {
			return feed.WatchSales(ctx, b.SetSales)
		})
	})
	g.Go(func() error {
		return b.follow(ctx, "returns", func(ctx context.Context) error {
			return feed.WatchReturns(ctx, b.SetReturns)
		})
	})
	g.Go(func() error {
		return b.follow(ctx, "settings", func(ctx context.Context) error {
			return feed.WatchRate(ctx, b.SetRate)
		})
	})
	return g.Wait()
}

// follow keeps one subscription alive. A broken subscription leaves the last
// snapshot in place and is retried after b.retry.
func (b *Board) follow(ctx context.Context, collection string, watch func(context.Context) error) error {
	for {
		err := watch(ctx)
		if ctx.Err() != nil {
			b.logger.Debug("subscription closed", zap.String("collection", collection))
			return nil
		}
		if err != nil {
			b.logger.Error("subscription failed", zap.String("collection", collection), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.retry):
		}
	}
}
