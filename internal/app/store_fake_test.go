package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cimillas/drop-api/internal/domain"
)

// fakeStore implements every repository port in memory. WithTx snapshots the
// state and restores it when fn fails, mirroring a rolled back transaction.
// The mutex is held for the whole WithTx body, mirroring the serialization
// the row locks provide.
type fakeStore struct {
	mu           sync.Mutex
	items        map[string]domain.Item
	reservations map[string]domain.Reservation
	purchases    map[string]domain.Purchase

	incrementErr   error
	incrementCalls int
}

func newFakeStore(items []domain.Item, reservations []domain.Reservation) *fakeStore {
	s := &fakeStore{
		items:        make(map[string]domain.Item),
		reservations: make(map[string]domain.Reservation),
		purchases:    make(map[string]domain.Purchase),
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	for _, res := range reservations {
		s.reservations[res.ID] = res
	}
	return s
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[string]domain.Item, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	reservations := make(map[string]domain.Reservation, len(s.reservations))
	for k, v := range s.reservations {
		reservations[k] = v
	}
	purchases := make(map[string]domain.Purchase, len(s.purchases))
	for k, v := range s.purchases {
		purchases[k] = v
	}

	if err := fn(ctx); err != nil {
		s.items, s.reservations, s.purchases = items, reservations, purchases
		return err
	}
	return nil
}

func (s *fakeStore) GetItemForUpdate(_ context.Context, itemID string) (domain.Item, error) {
	it, ok := s.items[itemID]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return it, nil
}

func (s *fakeStore) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	return s.GetItemForUpdate(ctx, itemID)
}

func (s *fakeStore) DecrementStock(_ context.Context, itemID string) (int, error) {
	it, ok := s.items[itemID]
	if !ok || it.Stock <= 0 {
		return 0, domain.ErrStockInvariant
	}
	it.Stock--
	s.items[itemID] = it
	return it.Stock, nil
}

func (s *fakeStore) IncrementStock(_ context.Context, itemID string, n int) (int, error) {
	s.incrementCalls++
	if s.incrementErr != nil {
		return 0, s.incrementErr
	}
	it, ok := s.items[itemID]
	if !ok || it.Stock+n > it.InitialStock {
		return 0, domain.ErrStockInvariant
	}
	it.Stock += n
	s.items[itemID] = it
	return it.Stock, nil
}

func (s *fakeStore) FindActiveReservation(_ context.Context, userID, itemID string, now time.Time) (*domain.Reservation, error) {
	for _, res := range s.reservations {
		if res.UserID != userID || res.ItemID != itemID {
			continue
		}
		if res.Status != domain.ReservationStatusActive {
			continue
		}
		if !res.ExpiresAt.After(now) {
			continue
		}
		found := res
		return &found, nil
	}
	return nil, nil
}

func (s *fakeStore) CreateReservation(_ context.Context, res domain.Reservation) error {
	s.reservations[res.ID] = res
	return nil
}

func (s *fakeStore) GetReservationForUpdate(_ context.Context, id string) (domain.Reservation, error) {
	res, ok := s.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return res, nil
}

func (s *fakeStore) UpdateReservationStatus(_ context.Context, id string, status domain.ReservationStatus) error {
	res, ok := s.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	res.Status = status
	s.reservations[id] = res
	return nil
}

func (s *fakeStore) CreatePurchase(_ context.Context, p domain.Purchase) error {
	for _, existing := range s.purchases {
		if existing.ReservationID == p.ReservationID {
			return domain.ErrStateConflict
		}
	}
	s.purchases[p.ID] = p
	return nil
}

func (s *fakeStore) LockDueReservations(_ context.Context, now time.Time) ([]domain.Reservation, error) {
	var due []domain.Reservation
	for _, res := range s.reservations {
		if res.Status == domain.ReservationStatusActive && res.ExpiresAt.Before(now) {
			due = append(due, res)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (s *fakeStore) MarkExpired(_ context.Context, ids []string) ([]string, error) {
	var itemIDs []string
	for _, id := range ids {
		res, ok := s.reservations[id]
		if !ok || res.Status != domain.ReservationStatusActive {
			continue
		}
		res.Status = domain.ReservationStatusExpired
		s.reservations[id] = res
		itemIDs = append(itemIDs, res.ItemID)
	}
	return itemIDs, nil
}

// stockOf reads an item's stock safely while a sweeper goroutine may be
// mutating the store.
func (s *fakeStore) stockOf(itemID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[itemID].Stock
}

// fakeEmitter records emitted events in order.
type fakeEmitter struct {
	events []emitted
}

type emitted struct {
	name    string
	payload any
}

func (f *fakeEmitter) Emit(_ context.Context, name string, payload any) {
	f.events = append(f.events, emitted{name: name, payload: payload})
}

func (f *fakeEmitter) names() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.name)
	}
	return out
}

var errInjected = errors.New("injected failure")
