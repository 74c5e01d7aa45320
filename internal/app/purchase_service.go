package app

import (
	"context"

	"github.com/cimillas/drop-api/internal/clock"
	"github.com/cimillas/drop-api/internal/domain"
)

type PurchaseRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
	CreatePurchase(ctx context.Context, p domain.Purchase) error
	UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error
}

// PurchaseService converts a still-valid hold into a permanent sale.
type PurchaseService struct {
	repo    PurchaseRepository
	emitter Emitter
	clock   clock.Clock
}

func NewPurchaseService(repo PurchaseRepository, emitter Emitter, clk clock.Clock) *PurchaseService {
	return &PurchaseService{
		repo:    repo,
		emitter: emitter,
		clock:   clk,
	}
}

// CompletePurchase finalizes the reservation. The deadline is checked against
// the wall clock here, independent of the sweeper's schedule, so a hold can
// be found expired between sweeps. Stock is not touched: the unit left the
// ledger when the hold was created.
//
// The sale price snapshots the item's price at this instant, not at
// reservation time.
func (s *PurchaseService) CompletePurchase(ctx context.Context, userID, reservationID string) (domain.Purchase, error) {
	if userID == "" {
		return domain.Purchase{}, domain.ErrUserRequired
	}
	if reservationID == "" {
		return domain.Purchase{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var purchase domain.Purchase

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.UserID != userID {
			return domain.ErrNotOwner
		}

		switch res.Status {
		case domain.ReservationStatusCompleted:
			return domain.ErrStateConflict
		case domain.ReservationStatusExpired:
			return domain.ErrReservationExpired
		}
		if res.Expired(now) {
			return domain.ErrReservationExpired
		}

		item, err := s.repo.GetItem(txCtx, res.ItemID)
		if err != nil {
			return err
		}

		purchase = domain.Purchase{
			ID:            newID(),
			ReservationID: res.ID,
			UserID:        res.UserID,
			ItemID:        res.ItemID,
			PriceCents:    item.PriceCents,
			CompletedAt:   now,
		}
		if err := s.repo.CreatePurchase(txCtx, purchase); err != nil {
			return err
		}
		return s.repo.UpdateReservationStatus(txCtx, res.ID, domain.ReservationStatusCompleted)
	})
	if err != nil {
		return domain.Purchase{}, err
	}

	s.emitter.Emit(ctx, domain.EventPurchaseCompleted, domain.PurchaseCompleted{
		ItemID:   purchase.ItemID,
		SaleID:   purchase.ID,
		HolderID: purchase.UserID,
	})
	return purchase, nil
}
