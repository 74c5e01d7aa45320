package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/drop-api/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidID           = "invalid_id"
	codeUserRequired        = "user_required"
	codeItemNotFound        = "item_not_found"
	codeReservationNotFound = "reservation_not_found"
	codeForbidden           = "forbidden"
	codeOutOfStock          = "out_of_stock"
	codeDropNotStarted      = "drop_not_started"
	codeDuplicateHold       = "duplicate_reservation"
	codeReservationExpired  = "reservation_expired"
	codeStateConflict       = "state_conflict"
	codeDuplicateRequest    = "duplicate_request"
	codeRetryLater          = "retry_later"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps a service error onto an HTTP status and a stable
// machine-readable code. Unknown errors become an opaque 500; internal
// detail never reaches the caller.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserRequired):
		writeError(w, http.StatusUnauthorized, codeUserRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.Is(err, domain.ErrNotOwner):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrOutOfStock):
		writeError(w, http.StatusConflict, codeOutOfStock, err.Error())
	case errors.Is(err, domain.ErrDropNotStarted):
		writeError(w, http.StatusConflict, codeDropNotStarted, err.Error())
	case errors.Is(err, domain.ErrDuplicateReservation):
		writeError(w, http.StatusConflict, codeDuplicateHold, err.Error())
	case errors.Is(err, domain.ErrReservationExpired):
		writeError(w, http.StatusConflict, codeReservationExpired, err.Error())
	case errors.Is(err, domain.ErrStateConflict):
		writeError(w, http.StatusConflict, codeStateConflict, err.Error())
	case errors.Is(err, domain.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, codeRetryLater, "temporarily unavailable, retry")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
