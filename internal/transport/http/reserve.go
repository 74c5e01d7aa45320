package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/drop-api/internal/app"
	"github.com/cimillas/drop-api/internal/domain"
)

// Reserver is the minimal interface needed to place a hold.
type Reserver interface {
	Reserve(ctx context.Context, in app.ReserveInput) (app.ReserveResult, error)
}

// HandleReserve returns an HTTP handler for reserving one unit of an item.
func HandleReserve(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userFromRequest(r)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, codeUserRequired, domain.ErrUserRequired.Error())
			return
		}

		res, err := svc.Reserve(r.Context(), app.ReserveInput{
			UserID: userID,
			ItemID: chi.URLParam(r, "itemID"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := reserveResponse{
			HoldID:   res.Reservation.ID,
			Status:   string(res.Reservation.Status),
			Deadline: res.Reservation.ExpiresAt,
			NewStock: res.NewStock,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type reserveResponse struct {
	HoldID   string    `json:"hold_id"`
	Status   string    `json:"status"`
	Deadline time.Time `json:"deadline"`
	NewStock int       `json:"new_stock"`
}
