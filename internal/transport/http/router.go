package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReservationHandlers groups the services the router exposes.
type ReservationHandlers struct {
	Reserver  Reserver
	Completer PurchaseCompleter
	Canceller Canceller
}

// NewRouter wires every route with logging and CORS. The idempotency guard
// is optional; pass nil to disable it.
func NewRouter(h ReservationHandlers, logger *zap.Logger, corsOrigins []string, guard *IdempotencyGuard) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(CORS(corsOrigins))
	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(MethodNotAllowedHandler())

	r.Get("/health", HealthHandler)

	r.Group(func(r chi.Router) {
		if guard != nil {
			r.Use(guard.Middleware)
		}
		r.Post("/items/{itemID}/reserve", HandleReserve(h.Reserver))
		r.Post("/reservations/{reservationID}/purchase", HandlePurchase(h.Completer))
		r.Post("/reservations/{reservationID}/cancel", HandleCancel(h.Canceller))
	})

	return r
}
