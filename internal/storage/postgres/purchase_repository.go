package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/drop-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PurchaseRepository backs purchase completion.
type PurchaseRepository struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepository(pool *pgxpool.Pool) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

func (r *PurchaseRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *PurchaseRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return getReservationForUpdate(ctx, r.pool, id)
}

// GetItem reads the item without locking it. Completion never mutates stock,
// so the price read does not need the ledger's row lock.
func (r *PurchaseRepository) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	const q = `
SELECT id, name, price_cents, starts_at, stock, initial_stock
FROM items
WHERE id = $1`

	var it domain.Item
	err := queryRow(ctx, r.pool, q, itemID).
		Scan(&it.ID, &it.Name, &it.PriceCents, &it.StartsAt, &it.Stock, &it.InitialStock)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Item{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (r *PurchaseRepository) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	const q = `
INSERT INTO purchases (id, reservation_id, user_id, item_id, price_cents, completed_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := exec(ctx, r.pool, q,
		p.ID,
		p.ReservationID,
		p.UserID,
		p.ItemID,
		p.PriceCents,
		p.CompletedAt,
	)
	if err != nil {
		// reservation_id is unique: a second completion of the same hold.
		if isUniqueViolation(err) {
			return domain.ErrStateConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepository) UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	return updateReservationStatus(ctx, r.pool, id, status)
}
