package apiutil

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/booking"
)

// ErrorResponse is the JSON body for every rejected request: a
// machine-readable code plus a human-readable message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteDomainError maps the booking error taxonomy onto HTTP statuses.
// Unrecognized errors become opaque 500s; the cause is logged, not leaked.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *booking.ValidationError
		notFoundErr   *booking.NotFoundError
		policyErr     *booking.PolicyError
		conflictErr   *booking.ConflictError
		stateErr      *booking.StateError
		gatewayErr    *booking.GatewayError
	)

	switch {
	case errors.As(err, &validationErr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    "validation_error",
			Message: validationErr.Error(),
			Field:   validationErr.Field,
		})
	case errors.As(err, &notFoundErr):
		WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Code:    "not_found",
			Message: notFoundErr.Error(),
		})
	case errors.As(err, &policyErr):
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "policy_violation",
			Message: policyErr.Error(),
		})
	case errors.As(err, &conflictErr):
		WriteJSON(w, http.StatusConflict, ErrorResponse{
			Code:    "slot_unavailable",
			Message: conflictErr.Error(),
		})
	case errors.As(err, &stateErr):
		WriteJSON(w, http.StatusConflict, ErrorResponse{
			Code:    "invalid_state",
			Message: stateErr.Error(),
		})
	case errors.As(err, &gatewayErr):
		log.Ctx(r.Context()).Error().Err(err).Msg("Payment gateway failure")
		WriteJSON(w, http.StatusBadGateway, ErrorResponse{
			Code:    "gateway_error",
			Message: "Payment provider is unavailable, please try again",
		})
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Unhandled handler error")
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:    "internal_error",
			Message: "Internal Server Error",
		})
	}
}
