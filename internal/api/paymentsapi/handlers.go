// internal/api/paymentsapi/handlers.go
package paymentsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/payments"
)

var (
	svc      *booking.Service
	gateway  payments.Gateway
	initOnce sync.Once
)

const webhookTimeout = 10 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(service *booking.Service, gw payments.Gateway) {
	if service == nil {
		return
	}
	initOnce.Do(func() {
		svc = service
		gateway = gw
	})
}

type webhookRequest struct {
	EventID string `json:"id"`
	Key     string `json:"key,omitempty"`
}

// POST /api/v1/payments/webhook
//
// The payload is untrusted; only the event ID is read and the event itself is
// re-fetched from the provider before anything changes.
func HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if svc == nil || gateway == nil {
		logger.Error().Msg("Payment webhook not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Provider payloads carry many fields we do not model; decode leniently
	// and read only the event ID.
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.EventID == "" {
		apiutil.WriteDomainError(w, r, &booking.ValidationError{Field: "id", Reason: "is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	event, err := gateway.VerifyEvent(ctx, req.EventID)
	if err != nil {
		// Event types we do not consume are acknowledged so the provider
		// stops redelivering them.
		if errors.Is(err, payments.ErrUnhandledEvent) {
			logger.Debug().Str("event_id", req.EventID).Msg("Ignoring unhandled webhook event")
			w.WriteHeader(http.StatusOK)
			return
		}
		logger.Warn().Err(err).Str("event_id", req.EventID).Msg("Webhook event verification failed")
		apiutil.WriteDomainError(w, r, &booking.GatewayError{Op: "verify event", Err: err})
		return
	}

	b, err := svc.HandlePaymentEvent(ctx, event)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().
		Int64("booking_id", b.ID).
		Bool("paid", event.Paid).
		Msg("Payment event processed")
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}
