package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/drop-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReservationRepository backs reserve and cancel. It is the only place new
// reservations are written.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) GetItemForUpdate(ctx context.Context, itemID string) (domain.Item, error) {
	return getItemForUpdate(ctx, r.pool, itemID)
}

func (r *ReservationRepository) DecrementStock(ctx context.Context, itemID string) (int, error) {
	return decrementStock(ctx, r.pool, itemID)
}

func (r *ReservationRepository) IncrementStock(ctx context.Context, itemID string, n int) (int, error) {
	return incrementStock(ctx, r.pool, itemID, n)
}

// FindActiveReservation returns the user's live hold on the item, if any.
// Active rows whose deadline already passed do not count; the sweeper will
// reclaim them.
func (r *ReservationRepository) FindActiveReservation(ctx context.Context, userID, itemID string, now time.Time) (*domain.Reservation, error) {
	const q = `
SELECT id, user_id, item_id, status, expires_at, created_at
FROM reservations
WHERE user_id = $1 AND item_id = $2 AND status = 'active' AND expires_at > $3`

	var res domain.Reservation
	err := queryRow(ctx, r.pool, q, userID, itemID, now).
		Scan(&res.ID, &res.UserID, &res.ItemID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active reservation: %w", err)
	}
	return &res, nil
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const q = `
INSERT INTO reservations (id, user_id, item_id, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := exec(ctx, r.pool, q,
		res.ID,
		res.UserID,
		res.ItemID,
		res.Status,
		res.ExpiresAt,
		res.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return getReservationForUpdate(ctx, r.pool, id)
}

func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	return updateReservationStatus(ctx, r.pool, id, status)
}
