package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cimillas/drop-api/internal/domain"
)

// PurchaseCompleter is the minimal interface needed to finalize a hold.
type PurchaseCompleter interface {
	CompletePurchase(ctx context.Context, userID, reservationID string) (domain.Purchase, error)
}

// HandlePurchase returns an HTTP handler for converting a hold into a sale.
func HandlePurchase(svc PurchaseCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userFromRequest(r)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, codeUserRequired, domain.ErrUserRequired.Error())
			return
		}

		purchase, err := svc.CompletePurchase(r.Context(), userID, chi.URLParam(r, "reservationID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := purchaseResponse{
			SaleID:      purchase.ID,
			HoldID:      purchase.ReservationID,
			PriceCents:  purchase.PriceCents,
			CompletedAt: purchase.CompletedAt,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type purchaseResponse struct {
	SaleID      string    `json:"sale_id"`
	HoldID      string    `json:"hold_id"`
	PriceCents  int64     `json:"price_cents"`
	CompletedAt time.Time `json:"completed_at"`
}
