// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/Courtside/internal/api"
	"github.com/codr1/Courtside/internal/api/availabilityapi"
	"github.com/codr1/Courtside/internal/api/blocksapi"
	"github.com/codr1/Courtside/internal/api/bookings"
	"github.com/codr1/Courtside/internal/api/courts"
	"github.com/codr1/Courtside/internal/api/facilities"
	"github.com/codr1/Courtside/internal/api/paymentsapi"
	"github.com/codr1/Courtside/internal/blocks"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/payments"
	"github.com/codr1/Courtside/internal/ratelimit"
	"github.com/codr1/Courtside/internal/timerange"
)

type serverDeps struct {
	store   booking.Store
	svc     *booking.Service
	manager *blocks.Manager
	gateway payments.Gateway
	limiter *ratelimit.Limiter
	clock   clockwork.Clock
}

func newServer(cfg *config.Config, deps serverDeps) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithAuth(cfg.App.SecretKey),
		api.WithRequestID,
	)

	// Register routes
	registerRoutes(router, cfg, deps)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func minDuration(cfg *config.Config) timerange.Minutes {
	if cfg.Booking.MinDurationMinutes > 0 {
		return timerange.Minutes(cfg.Booking.MinDurationMinutes)
	}
	return timerange.DefaultMinDuration
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, deps serverDeps) {
	availabilityapi.InitHandlers(deps.store, deps.clock, cfg.Booking.SlotGranularityMinutes)
	bookings.InitHandlers(deps.svc, deps.limiter, cfg.App.Environment == "production")
	blocksapi.InitHandlers(deps.manager)
	courts.InitHandlers(deps.store)
	facilities.InitHandlers(deps.store)
	paymentsapi.InitHandlers(deps.svc, deps.gateway)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability grid
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", availabilityapi.HandleAvailability)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingCreate)
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleBookingList)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleBookingGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleBookingCancel)

	// Maintenance blocks
	mux.HandleFunc("POST /api/v1/courts/{id}/blocks", blocksapi.HandleBlockCreate)
	mux.HandleFunc("DELETE /api/v1/courts/{id}/blocks", blocksapi.HandleBlockDelete)

	// Courts
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCourtCreate)
	mux.HandleFunc("GET /api/v1/courts", courts.HandleCourtList)
	mux.HandleFunc("GET /api/v1/courts/{id}", courts.HandleCourtGet)
	mux.HandleFunc("PUT /api/v1/courts/{id}", courts.HandleCourtUpdate)
	mux.HandleFunc("DELETE /api/v1/courts/{id}", courts.HandleCourtDelete)

	// Facilities
	mux.HandleFunc("POST /api/v1/facilities", facilities.HandleFacilityCreate)
	mux.HandleFunc("GET /api/v1/facilities/{id}", facilities.HandleFacilityGet)
	mux.HandleFunc("POST /api/v1/facilities/{id}/approve", facilities.HandleFacilityApprove)

	// Payment provider webhook
	mux.HandleFunc("POST /api/v1/payments/webhook", paymentsapi.HandleWebhook)
}
