package app

import (
	"context"
	"time"

	"github.com/cimillas/drop-api/internal/clock"
	"github.com/cimillas/drop-api/internal/domain"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetItemForUpdate(ctx context.Context, itemID string) (domain.Item, error)
	DecrementStock(ctx context.Context, itemID string) (int, error)
	IncrementStock(ctx context.Context, itemID string, n int) (int, error)
	FindActiveReservation(ctx context.Context, userID, itemID string, now time.Time) (*domain.Reservation, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error
}

// ReservationService owns the reserve and cancel paths of the hold lifecycle.
type ReservationService struct {
	repo    ReservationRepository
	emitter Emitter
	clock   clock.Clock
	ttl     time.Duration
}

const defaultReservationTTL = 60 * time.Second

func NewReservationService(repo ReservationRepository, emitter Emitter, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:    repo,
		emitter: emitter,
		clock:   clk,
		ttl:     defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithReservationTTL overrides the default hold duration.
func WithReservationTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

type ReserveInput struct {
	UserID string
	ItemID string
}

type ReserveResult struct {
	Reservation domain.Reservation
	NewStock    int
}

// Reserve places a hold on one unit of the item. The duplicate check, start
// gate, stock check, decrement and reservation insert are one atomic
// transaction; a failure on any branch leaves stock and the reservation set
// unchanged.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (ReserveResult, error) {
	if in.UserID == "" {
		return ReserveResult{}, domain.ErrUserRequired
	}
	if in.ItemID == "" {
		return ReserveResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result ReserveResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Cheap pre-check so an obvious duplicate fails without touching
		// the item row lock.
		if existing, err := s.repo.FindActiveReservation(txCtx, in.UserID, in.ItemID, now); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrDuplicateReservation
		}

		item, err := s.repo.GetItemForUpdate(txCtx, in.ItemID)
		if err != nil {
			return err
		}
		if !item.HasStarted(now) {
			return domain.ErrDropNotStarted
		}
		if item.Stock == 0 {
			return domain.ErrOutOfStock
		}

		// Authoritative duplicate check. Reserves on this item serialize on
		// the row lock above, so a racing reserve that committed while we
		// waited is visible here.
		if existing, err := s.repo.FindActiveReservation(txCtx, in.UserID, in.ItemID, now); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrDuplicateReservation
		}

		newStock, err := s.repo.DecrementStock(txCtx, in.ItemID)
		if err != nil {
			return err
		}

		res := domain.Reservation{
			ID:        newID(),
			UserID:    in.UserID,
			ItemID:    in.ItemID,
			Status:    domain.ReservationStatusActive,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
		}
		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}

		result = ReserveResult{Reservation: res, NewStock: newStock}
		return nil
	})
	if err != nil {
		return ReserveResult{}, err
	}

	s.emitter.Emit(ctx, domain.EventStockUpdate, domain.StockUpdate{
		ItemID:   in.ItemID,
		NewStock: result.NewStock,
	})
	s.emitter.Emit(ctx, domain.EventReservationCreated, domain.ReservationCreated{
		HoldID:   result.Reservation.ID,
		ItemID:   in.ItemID,
		HolderID: in.UserID,
	})
	return result, nil
}

// Cancel releases an active hold back to inventory. The status transition and
// the stock credit are one transaction; a hold that already reached a
// terminal state is rejected and stock stays untouched.
func (s *ReservationService) Cancel(ctx context.Context, userID, reservationID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	if reservationID == "" {
		return domain.ErrInvalidID
	}

	var (
		itemID   string
		newStock int
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.UserID != userID {
			return domain.ErrNotOwner
		}
		if res.Status != domain.ReservationStatusActive {
			return domain.ErrStateConflict
		}

		if err := s.repo.UpdateReservationStatus(txCtx, res.ID, domain.ReservationStatusExpired); err != nil {
			return err
		}
		stock, err := s.repo.IncrementStock(txCtx, res.ItemID, 1)
		if err != nil {
			return err
		}

		itemID, newStock = res.ItemID, stock
		return nil
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(ctx, domain.EventStockUpdate, domain.StockUpdate{
		ItemID:   itemID,
		NewStock: newStock,
	})
	return nil
}
