package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/drop-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements shared by more than one repository. Stock mutations live here so
// every writer of items.stock goes through the same guarded UPDATEs.

func getItemForUpdate(ctx context.Context, pool *pgxpool.Pool, itemID string) (domain.Item, error) {
	const q = `
SELECT id, name, price_cents, starts_at, stock, initial_stock
FROM items
WHERE id = $1
FOR UPDATE`

	var it domain.Item
	err := queryRow(ctx, pool, q, itemID).
		Scan(&it.ID, &it.Name, &it.PriceCents, &it.StartsAt, &it.Stock, &it.InitialStock)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Item{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get item for update: %w", err)
	}
	return it, nil
}

// decrementStock removes one unit. The caller must already hold the item row
// lock and have verified stock > 0; a zero-row update therefore means the
// ceiling invariant broke and the transaction must abort.
func decrementStock(ctx context.Context, pool *pgxpool.Pool, itemID string) (int, error) {
	const q = `
UPDATE items
SET stock = stock - 1
WHERE id = $1 AND stock > 0
RETURNING stock`

	var newStock int
	if err := queryRow(ctx, pool, q, itemID).Scan(&newStock); err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrStockInvariant
		}
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return newStock, nil
}

// incrementStock credits n units back, refusing to exceed initial_stock.
func incrementStock(ctx context.Context, pool *pgxpool.Pool, itemID string, n int) (int, error) {
	const q = `
UPDATE items
SET stock = stock + $2
WHERE id = $1 AND stock + $2 <= initial_stock
RETURNING stock`

	var newStock int
	if err := queryRow(ctx, pool, q, itemID, n).Scan(&newStock); err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrStockInvariant
		}
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	return newStock, nil
}

func getReservationForUpdate(ctx context.Context, pool *pgxpool.Pool, id string) (domain.Reservation, error) {
	const q = `
SELECT id, user_id, item_id, status, expires_at, created_at
FROM reservations
WHERE id = $1
FOR UPDATE`

	var r domain.Reservation
	err := queryRow(ctx, pool, q, id).
		Scan(&r.ID, &r.UserID, &r.ItemID, &r.Status, &r.ExpiresAt, &r.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation for update: %w", err)
	}
	return r, nil
}

func updateReservationStatus(ctx context.Context, pool *pgxpool.Pool, id string, status domain.ReservationStatus) error {
	const q = `UPDATE reservations SET status = $2 WHERE id = $1`

	tag, err := exec(ctx, pool, q, id, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}
