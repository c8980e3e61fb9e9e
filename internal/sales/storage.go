package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a record with the given ID is not found.
var ErrNotFound = errors.New("record not found")

// ErrEmptyID is returned when trying to store a record with an empty ID.
var ErrEmptyID = errors.New("empty record ID")

// Storage is the write side of the backing document store.
type Storage interface {
	// UpsertReturn creates the return with the given id or merges the set
	// fields of patch into the existing one.
	UpsertReturn(ctx context.Context, id string, patch ReturnPatch) error
	// UpdateReturn merges patch into an existing return.
	UpdateReturn(ctx context.Context, id string, patch ReturnPatch) error
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
}

// Feed is the read side of the backing document store. Each Watch call
// blocks, passing a full snapshot to fn on subscribe and after every change.
// It returns nil once ctx is done and an error if the subscription breaks.
type Feed interface {
	WatchSales(ctx context.Context, fn func([]*Sale)) error
	WatchReturns(ctx context.Context, fn func([]*Return)) error
	// WatchRate reports ok=false while no exchange rate is stored.
	WatchRate(ctx context.Context, fn func(rate float64, ok bool)) error
}

type topic int

const (
	topicSales topic = iota
	topicReturns
	topicSettings
)

var (
	_ Storage = (*LocalStorage)(nil)
	_ Feed    = (*LocalStorage)(nil)
)

// LocalStorage provides an in-memory implementation of Storage and Feed.
type LocalStorage struct {
	mu       sync.Mutex
	sales    map[string]*Sale
	returns  map[string]*Return
	history  []*HistoryEntry
	rate     *float64
	watchers map[topic]map[chan struct{}]struct{}
}

// NewLocalStorage instantiates an empty LocalStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		sales:   map[string]*Sale{},
		returns: map[string]*Return{},
		watchers: map[topic]map[chan struct{}]struct{}{
			topicSales:    {},
			topicReturns:  {},
			topicSettings: {},
		},
	}
}

// PutSale stores a sale. Sales are written by other tools; this is for
// seeding and tests.
// Returns ErrEmptyID if the sale has an empty ID.
func (l *LocalStorage) PutSale(sale *Sale) error {
	if sale.ID == "" {
		return ErrEmptyID
	}
	cp := *sale
	l.mu.Lock()
	l.sales[sale.ID] = &cp
	l.notify(topicSales)
	l.mu.Unlock()
	return nil
}

// SetRate stores the PLN to CZK exchange rate setting.
func (l *LocalStorage) SetRate(rate float64) {
	l.mu.Lock()
	l.rate = &rate
	l.notify(topicSettings)
	l.mu.Unlock()
}

// UpsertReturn implements Storage.
func (l *LocalStorage) UpsertReturn(_ context.Context, id string, patch ReturnPatch) error {
	if id == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.returns[id]
	if !ok {
		r = &Return{ID: id}
		l.returns[id] = r
	}
	patch.Apply(r)
	l.notify(topicReturns)
	return nil
}

// UpdateReturn implements Storage.
// Returns ErrNotFound if no return has the given ID.
func (l *LocalStorage) UpdateReturn(_ context.Context, id string, patch ReturnPatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.returns[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(r)
	l.notify(topicReturns)
	return nil
}

// AppendHistory implements Storage.
func (l *LocalStorage) AppendHistory(_ context.Context, entry *HistoryEntry) error {
	if entry.ID == "" {
		return ErrEmptyID
	}
	cp := *entry
	l.mu.Lock()
	l.history = append(l.history, &cp)
	l.mu.Unlock()
	return nil
}

// ReadReturn retrieves a copy of a return by ID.
// Returns ErrNotFound if the return is not found.
func (l *LocalStorage) ReadReturn(id string) (*Return, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.returns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyReturn(r), nil
}

// History returns the activity log in append order.
func (l *LocalStorage) History() []*HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*HistoryEntry, len(l.history))
	for i, e := range l.history {
		cp := *e
		out[i] = &cp
	}
	return out
}

// WatchSales implements Feed.
func (l *LocalStorage) WatchSales(ctx context.Context, fn func([]*Sale)) error {
	return l.watch(ctx, topicSales, func() {
		l.mu.Lock()
		out := make([]*Sale, 0, len(l.sales))
		for _, s := range l.sales {
			cp := *s
			out = append(out, &cp)
		}
		l.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		fn(out)
	})
}

// WatchReturns implements Feed.
func (l *LocalStorage) WatchReturns(ctx context.Context, fn func([]*Return)) error {
	return l.watch(ctx, topicReturns, func() {
		l.mu.Lock()
		out := make([]*Return, 0, len(l.returns))
		for _, r := range l.returns {
			out = append(out, copyReturn(r))
		}
		l.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		fn(out)
	})
}

// WatchRate implements Feed.
func (l *LocalStorage) WatchRate(ctx context.Context, fn func(float64, bool)) error {
	return l.watch(ctx, topicSettings, func() {
		l.mu.Lock()
		rate := l.rate
		l.mu.Unlock()
		if rate == nil {
			fn(0, false)
			return
		}
		fn(*rate, true)
	})
}

func (l *LocalStorage) watch(ctx context.Context, t topic, emit func()) error {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.watchers[t][ch] = struct{}{}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.watchers[t], ch)
		l.mu.Unlock()
	}()

	emit()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			emit()
		}
	}
}

// notify must be called with l.mu held.
func (l *LocalStorage) notify(t topic) {
	for ch := range l.watchers[t] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func copyReturn(r *Return) *Return {
	cp := *r
	if r.ReturnedAt != nil {
		at := *r.ReturnedAt
		cp.ReturnedAt = &at
	}
	if r.CreatedAt != nil {
		at := *r.CreatedAt
		cp.CreatedAt = &at
	}
	return &cp
}
