package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cimillas/drop-api/internal/clock"
	"github.com/cimillas/drop-api/internal/domain"
)

func TestSweeper_Sweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	makeSweeper := func(items []domain.Item, reservations []domain.Reservation) (*Sweeper, *fakeStore, *fakeEmitter) {
		store := newFakeStore(items, reservations)
		emitter := &fakeEmitter{}
		sw := NewSweeper(store, emitter, clock.NewFixed(now), zap.NewNop())
		return sw, store, emitter
	}

	t.Run("reclaims due holds with one credit per item", func(t *testing.T) {
		sw, store, emitter := makeSweeper(
			[]domain.Item{
				{ID: "item-a", Stock: 1, InitialStock: 5},
				{ID: "item-b", Stock: 0, InitialStock: 3},
			},
			[]domain.Reservation{
				{ID: "res-1", UserID: "u1", ItemID: "item-a", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-10 * time.Second)},
				{ID: "res-2", UserID: "u2", ItemID: "item-a", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-5 * time.Second)},
				{ID: "res-3", UserID: "u3", ItemID: "item-b", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-1 * time.Second)},
				// Not due yet.
				{ID: "res-4", UserID: "u4", ItemID: "item-a", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(30 * time.Second)},
				// Already terminal.
				{ID: "res-5", UserID: "u5", ItemID: "item-b", Status: domain.ReservationStatusCompleted, ExpiresAt: now.Add(-30 * time.Second)},
			},
		)

		credits, err := sw.Sweep(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(credits) != 2 {
			t.Fatalf("expected credits for 2 items, got %d", len(credits))
		}
		if credits[0].ItemID != "item-a" || credits[0].Returned != 2 || credits[0].NewStock != 3 {
			t.Fatalf("unexpected credit for item-a: %+v", credits[0])
		}
		if credits[1].ItemID != "item-b" || credits[1].Returned != 1 || credits[1].NewStock != 1 {
			t.Fatalf("unexpected credit for item-b: %+v", credits[1])
		}

		for _, id := range []string{"res-1", "res-2", "res-3"} {
			if store.reservations[id].Status != domain.ReservationStatusExpired {
				t.Fatalf("expected %s expired, got %s", id, store.reservations[id].Status)
			}
		}
		if store.reservations["res-4"].Status != domain.ReservationStatusActive {
			t.Fatalf("expected res-4 untouched, got %s", store.reservations["res-4"].Status)
		}
		if store.reservations["res-5"].Status != domain.ReservationStatusCompleted {
			t.Fatalf("expected res-5 untouched, got %s", store.reservations["res-5"].Status)
		}
		if store.incrementCalls != 2 {
			t.Fatalf("expected one credit per item, got %d calls", store.incrementCalls)
		}

		names := emitter.names()
		want := []string{
			domain.EventReservationExpired, domain.EventStockUpdate,
			domain.EventReservationExpired, domain.EventStockUpdate,
		}
		if len(names) != len(want) {
			t.Fatalf("expected %d events, got %v", len(want), names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("expected event %d to be %s, got %s", i, want[i], names[i])
			}
		}
	})

	t.Run("empty tick commits trivially", func(t *testing.T) {
		sw, _, emitter := makeSweeper(
			[]domain.Item{{ID: "item-a", Stock: 5, InitialStock: 5}},
			[]domain.Reservation{
				{ID: "res-1", UserID: "u1", ItemID: "item-a", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(10 * time.Second)},
			},
		)

		credits, err := sw.Sweep(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(credits) != 0 {
			t.Fatalf("expected no credits, got %v", credits)
		}
		if len(emitter.events) != 0 {
			t.Fatalf("expected no events, got %v", emitter.names())
		}
	})

	t.Run("failed tick rolls back whole and the next tick succeeds", func(t *testing.T) {
		sw, store, emitter := makeSweeper(
			[]domain.Item{{ID: "item-a", Stock: 0, InitialStock: 2}},
			[]domain.Reservation{
				{ID: "res-1", UserID: "u1", ItemID: "item-a", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-10 * time.Second)},
				{ID: "res-2", UserID: "u2", ItemID: "item-a", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-10 * time.Second)},
			},
		)
		store.incrementErr = errInjected

		if _, err := sw.Sweep(context.Background()); err != errInjected {
			t.Fatalf("expected injected error, got %v", err)
		}
		// Never a partial credit: the transitions rolled back with the tick.
		for _, id := range []string{"res-1", "res-2"} {
			if store.reservations[id].Status != domain.ReservationStatusActive {
				t.Fatalf("expected %s rolled back to active, got %s", id, store.reservations[id].Status)
			}
		}
		if store.items["item-a"].Stock != 0 {
			t.Fatalf("expected stock unchanged, got %d", store.items["item-a"].Stock)
		}
		if len(emitter.events) != 0 {
			t.Fatalf("expected no events, got %v", emitter.names())
		}

		store.incrementErr = nil
		credits, err := sw.Sweep(context.Background())
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if len(credits) != 1 || credits[0].Returned != 2 || credits[0].NewStock != 2 {
			t.Fatalf("unexpected credits on retry: %+v", credits)
		}
	})

	t.Run("hold cancelled between selection and transition is skipped", func(t *testing.T) {
		// MarkExpired re-checks status, so a hold that lost its active
		// status after LockDueReservations saw it yields no credit.
		store := newFakeStore(
			[]domain.Item{{ID: "item-a", Stock: 2, InitialStock: 2}},
			[]domain.Reservation{
				{ID: "res-1", UserID: "u1", ItemID: "item-a", Status: domain.ReservationStatusExpired, ExpiresAt: now.Add(-10 * time.Second)},
			},
		)
		emitter := &fakeEmitter{}
		sw := NewSweeper(store, emitter, clock.NewFixed(now), zap.NewNop())

		itemIDs, err := store.MarkExpired(context.Background(), []string{"res-1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(itemIDs) != 0 {
			t.Fatalf("expected no transitions, got %v", itemIDs)
		}

		credits, err := sw.Sweep(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(credits) != 0 {
			t.Fatalf("expected no credits, got %+v", credits)
		}
	})
}

func TestSweeper_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(
		[]domain.Item{{ID: "item-a", Stock: 0, InitialStock: 1}},
		[]domain.Reservation{
			{ID: "res-1", UserID: "u1", ItemID: "item-a", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-1 * time.Second)},
		},
	)
	emitter := &fakeEmitter{}
	sw := NewSweeper(store, emitter, clock.NewFixed(now), zap.NewNop(), WithSweepInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sw.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for store.stockOf("item-a") == 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never reclaimed the hold")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
