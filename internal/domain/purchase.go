package domain

import "time"

// Purchase is the permanent sale derived from a completed reservation.
// PriceCents snapshots the item price at completion time and is immutable,
// independent of later catalog edits.
type Purchase struct {
	ID            string
	ReservationID string
	UserID        string
	ItemID        string
	PriceCents    int64
	CompletedAt   time.Time
}
