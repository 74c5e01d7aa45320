package app

import (
	"context"
	"sort"
	"time"

	"github.com/cimillas/drop-api/internal/clock"
	"github.com/cimillas/drop-api/internal/domain"
	"go.uber.org/zap"
)

type SweepRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockDueReservations(ctx context.Context, now time.Time) ([]domain.Reservation, error)
	MarkExpired(ctx context.Context, ids []string) ([]string, error)
	IncrementStock(ctx context.Context, itemID string, n int) (int, error)
}

// Sweeper reclaims holds whose deadline passed without a purchase or a
// cancellation.
type Sweeper struct {
	repo     SweepRepository
	emitter  Emitter
	clock    clock.Clock
	logger   *zap.Logger
	interval time.Duration
}

const defaultSweepInterval = 10 * time.Second

func NewSweeper(repo SweepRepository, emitter Emitter, clk clock.Clock, logger *zap.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		emitter:  emitter,
		clock:    clk,
		logger:   logger,
		interval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the default tick interval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// ItemCredit reports the units one sweep tick returned to a single item.
type ItemCredit struct {
	ItemID   string
	Returned int
	NewStock int
}

// Run sweeps on a fixed interval until ctx is cancelled. Ticks never overlap:
// the next tick is not taken before the previous transaction finished. A
// failed tick rolls back whole, is logged, and the schedule simply continues.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep tick failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs one tick: in a single transaction it locks every due active
// reservation, transitions the ones a concurrent completion or cancellation
// has not already moved, and credits each affected item exactly once. A tick
// that matches nothing commits trivially.
func (s *Sweeper) Sweep(ctx context.Context) ([]ItemCredit, error) {
	now := s.clock.Now()
	var credits []ItemCredit

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		credits = nil

		due, err := s.repo.LockDueReservations(txCtx, now)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]string, 0, len(due))
		for _, res := range due {
			ids = append(ids, res.ID)
		}

		itemIDs, err := s.repo.MarkExpired(txCtx, ids)
		if err != nil {
			return err
		}

		returned := make(map[string]int, len(itemIDs))
		for _, itemID := range itemIDs {
			returned[itemID]++
		}

		// Deterministic item order keeps concurrent creditors from locking
		// items in conflicting orders.
		ordered := make([]string, 0, len(returned))
		for itemID := range returned {
			ordered = append(ordered, itemID)
		}
		sort.Strings(ordered)

		for _, itemID := range ordered {
			newStock, err := s.repo.IncrementStock(txCtx, itemID, returned[itemID])
			if err != nil {
				return err
			}
			credits = append(credits, ItemCredit{
				ItemID:   itemID,
				Returned: returned[itemID],
				NewStock: newStock,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range credits {
		s.emitter.Emit(ctx, domain.EventReservationExpired, domain.ReservationExpired{
			ItemID:        c.ItemID,
			StockReturned: c.Returned,
		})
		s.emitter.Emit(ctx, domain.EventStockUpdate, domain.StockUpdate{
			ItemID:   c.ItemID,
			NewStock: c.NewStock,
		})
	}
	if len(credits) > 0 {
		s.logger.Info("sweep reclaimed holds", zap.Int("items", len(credits)))
	}
	return credits, nil
}
