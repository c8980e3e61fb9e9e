package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service answers the dashboard views from the Board and passes writes
// through to Storage.
type Service struct {
	storage Storage
	board   *Board
	logger  *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the time zone week windows are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service.
func NewService(storage Storage, board *Board, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	s := &Service{
		storage: storage,
		board:   board,
		logger:  logger,
		loc:     time.Local,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SalesWeek is the sales table for one week.
type SalesWeek struct {
	Window  Window  `json:"window"`
	Label   string  `json:"label"`
	Results []*Sale `json:"results"`
	Summary Summary `json:"summary"`
	Rate    float64 `json:"rate"`
}

// ReturnsWeek is the returns table for one week.
type ReturnsWeek struct {
	Window   Window         `json:"window"`
	Label    string         `json:"label"`
	Results  []*Return      `json:"results"`
	Counters ReturnCounters `json:"counters"`
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// ExchangeRate returns the PLN to CZK rate currently in effect.
func (s *Service) ExchangeRate() float64 {
	return s.board.Snapshot().Rate
}

// SalesWeek filters the live sales to the week at offset from the current
// one and summarizes them.
func (s *Service) SalesWeek(offset int, search string) SalesWeek {
	snap := s.board.Snapshot()
	w := WeekWindow(s.today(), offset)
	results := FilterAndSort(snap.Sales, w, search, s.loc)
	summary := Summarize(results, snap.Rate)

	s.logger.Debug("sales week computed",
		zap.Int("week_offset", offset),
		zap.Int("search_len", len(search)),
		zap.Int("results_count", summary.Count),
	)

	return SalesWeek{
		Window:  w,
		Label:   w.Label(),
		Results: results,
		Summary: summary,
		Rate:    snap.Rate,
	}
}

// ReturnsWeek filters the live returns to the week at offset from the
// current one.
func (s *Service) ReturnsWeek(offset int) ReturnsWeek {
	w := WeekWindow(s.today(), offset)
	results := FilterReturns(s.board.Snapshot().Returns, w)
	return ReturnsWeek{
		Window:   w,
		Label:    w.Label(),
		Results:  results,
		Counters: CountReturns(results),
	}
}

// AddToReturns marks a sale for return: the return record is upserted under
// the sale's ID, then the action is logged. The two writes are independent,
// so a failed log append leaves the return in place.
func (s *Service) AddToReturns(ctx context.Context, saleID string) (*Return, error) {
	snap := s.board.Snapshot()
	sale := findSale(snap.Sales, saleID)
	if sale == nil {
		return nil, ErrNotFound
	}

	now := s.now()
	patch := ReturnFromSale(sale, now)
	if err := s.storage.UpsertReturn(ctx, sale.ID, patch); err != nil {
		s.logger.Error("failed to upsert return", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to upsert return: %w", err)
	}

	entry := &HistoryEntry{
		ID:        uuid.NewString(),
		Action:    ActionReturnAdded,
		DocID:     sale.ID,
		Details:   returnDetails(sale),
		CreatedAt: now,
	}
	if err := s.storage.AppendHistory(ctx, entry); err != nil {
		s.logger.Error("failed to append history", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	r := &Return{ID: sale.ID}
	if existing := findReturn(snap.Returns, sale.ID); existing != nil {
		r = copyReturn(existing)
	}
	patch.Apply(r)

	s.logger.Info("sale added to returns", zap.String("sale_id", sale.ID), zap.String("history_id", entry.ID))
	return r, nil
}

// ToggleReturned flips the returned flag of a return as last seen on the
// board. Write failures are logged and not reported.
func (s *Service) ToggleReturned(ctx context.Context, returnID string) (ReturnPatch, error) {
	r := findReturn(s.board.Snapshot().Returns, returnID)
	if r == nil {
		return ReturnPatch{}, ErrNotFound
	}

	patch := ToggleReturned(r, s.now())
	if err := s.storage.UpdateReturn(ctx, returnID, patch); err != nil {
		s.logger.Error("failed to toggle returned", zap.String("return_id", returnID), zap.Error(err))
	}
	return patch, nil
}

// SaveDeposit stores the deposit typed into the returns table. Input that
// does not parse is saved as 0. Write failures are logged and not reported.
func (s *Service) SaveDeposit(ctx context.Context, returnID, raw string) (float64, error) {
	if findReturn(s.board.Snapshot().Returns, returnID) == nil {
		return 0, ErrNotFound
	}

	deposit := ParseDeposit(raw)
	if err := s.storage.UpdateReturn(ctx, returnID, ReturnPatch{DepositCZK: &deposit}); err != nil {
		s.logger.Error("failed to save deposit", zap.String("return_id", returnID), zap.Float64("deposit", deposit), zap.Error(err))
	}
	return deposit, nil
}

func returnDetails(sale *Sale) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{sale.ItemName, sale.CustomerName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func findSale(list []*Sale, id string) *Sale {
	for _, s := range list {
		if s != nil && s.ID == id {
			return s
		}
	}
	return nil
}

func findReturn(list []*Return, id string) *Return {
	for _, r := range list {
		if r != nil && r.ID == id {
			return r
		}
	}
	return nil
}
