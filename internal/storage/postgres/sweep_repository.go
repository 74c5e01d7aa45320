package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/drop-api/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SweepRepository backs the expiration sweeper.
type SweepRepository struct {
	pool *pgxpool.Pool
}

func NewSweepRepository(pool *pgxpool.Pool) *SweepRepository {
	return &SweepRepository{pool: pool}
}

func (r *SweepRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockDueReservations locks every active reservation whose deadline passed.
// Rows are ordered by id so concurrent lockers of the same set cannot
// deadlock against each other.
func (r *SweepRepository) LockDueReservations(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	const q = `
SELECT id, user_id, item_id, status, expires_at, created_at
FROM reservations
WHERE status = 'active' AND expires_at < $1
ORDER BY id
FOR UPDATE`

	rows, err := query(ctx, r.pool, q, now)
	if err != nil {
		return nil, fmt.Errorf("lock due reservations: %w", err)
	}
	defer rows.Close()

	var due []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.ItemID, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan due reservation: %w", err)
		}
		due = append(due, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock due reservations: %w", err)
	}
	return due, nil
}

// MarkExpired transitions the given reservations and returns the item id of
// each row actually transitioned. The status predicate re-checks under the
// lock so a hold a concurrent completion or cancellation already moved is
// skipped instead of credited twice.
func (r *SweepRepository) MarkExpired(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const q = `
UPDATE reservations
SET status = 'expired'
WHERE id = ANY($1) AND status = 'active'
RETURNING item_id`

	rows, err := query(ctx, r.pool, q, ids)
	if err != nil {
		return nil, fmt.Errorf("mark expired: %w", err)
	}
	defer rows.Close()

	var itemIDs []string
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("scan expired item id: %w", err)
		}
		itemIDs = append(itemIDs, itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mark expired: %w", err)
	}
	return itemIDs, nil
}

func (r *SweepRepository) IncrementStock(ctx context.Context, itemID string, n int) (int, error) {
	return incrementStock(ctx, r.pool, itemID, n)
}
