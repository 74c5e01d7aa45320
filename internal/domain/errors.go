package domain

import "errors"

var (
	ErrItemNotFound         = errors.New("item not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrNotOwner             = errors.New("reservation belongs to another user")
	ErrOutOfStock           = errors.New("out of stock")
	ErrDropNotStarted       = errors.New("drop has not started")
	ErrDuplicateReservation = errors.New("active reservation already exists")
	ErrReservationExpired   = errors.New("reservation expired")
	ErrStateConflict        = errors.New("reservation is not active")
	ErrUserRequired         = errors.New("user id required")
	ErrInvalidID            = errors.New("invalid id")

	// ErrStockInvariant means a mutation would push stock outside
	// [0, initial_stock]. Unreachable when the services are correct; the
	// surrounding transaction is aborted rather than the value clamped.
	ErrStockInvariant = errors.New("stock outside allowed range")

	// ErrTransient covers lock timeouts, deadlocks and serialization
	// failures. The failed call is safe to retry.
	ErrTransient = errors.New("transient database error")
)
