package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"marathon-billing/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

// respondDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic message so internals never leak.
func respondDomainError(w http.ResponseWriter, err error) {
	var locked *domain.DayLockedError
	if errors.As(err, &locked) {
		respondError(w, http.StatusForbidden, "day_locked", locked.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request parameters")
	case errors.Is(err, domain.ErrAlreadyPurchased):
		respondError(w, http.StatusBadRequest, "already_purchased", "active purchase already exists")
	case errors.Is(err, domain.ErrAlreadyEnrolled):
		respondError(w, http.StatusConflict, "already_enrolled", "already enrolled in this marathon")
	case errors.Is(err, domain.ErrPaymentRequired):
		respondError(w, http.StatusPaymentRequired, "payment_required", "this marathon requires payment")
	case errors.Is(err, domain.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "access_denied", "access denied")
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrProgramNotFound),
		errors.Is(err, domain.ErrEnrollmentNotFound),
		errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		respondError(w, http.StatusInternalServerError, "gateway_error", "payment gateway is unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
