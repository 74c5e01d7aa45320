package domain

import "time"

// Item is a drop product. Catalog fields (name, price, start time) are owned
// by the catalog store; the stock counter and its ceiling are owned by the
// stock ledger and only ever mutated under the item's row lock.
type Item struct {
	ID           string
	Name         string
	PriceCents   int64
	StartsAt     *time.Time
	Stock        int
	InitialStock int
}

// HasStarted reports whether the drop accepts reservations at now. A nil
// StartsAt means the item is available immediately.
func (i Item) HasStarted(now time.Time) bool {
	return i.StartsAt == nil || !i.StartsAt.After(now)
}
