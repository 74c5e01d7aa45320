package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCompleted ReservationStatus = "completed"
)

// Reservation holds one unit of an item for a limited time. Transitions are
// monotonic: active goes to expired or completed, both terminal. Rows are
// never deleted; they stay for audit.
type Reservation struct {
	ID        string
	UserID    string
	ItemID    string
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the deadline has passed at now, regardless of the
// stored status. Used for the lazy expiry check during purchase completion.
func (r Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
