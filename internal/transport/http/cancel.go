package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/drop-api/internal/domain"
)

// Canceller is the minimal interface needed to release a hold.
type Canceller interface {
	Cancel(ctx context.Context, userID, reservationID string) error
}

// HandleCancel returns an HTTP handler for releasing a hold back to stock.
func HandleCancel(svc Canceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userFromRequest(r)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, codeUserRequired, domain.ErrUserRequired.Error())
			return
		}

		if err := svc.Cancel(r.Context(), userID, chi.URLParam(r, "reservationID")); err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}
}
