// internal/api/courts/handlers.go
package courts

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/timerange"
)

var (
	store    booking.Store
	initOnce sync.Once
)

const courtQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s booking.Store) {
	if s == nil {
		return
	}
	initOnce.Do(func() {
		store = s
	})
}

type courtRequest struct {
	FacilityID        int64  `json:"facility_id"`
	Name              string `json:"name"`
	OpeningTime       string `json:"opening_time"`
	ClosingTime       string `json:"closing_time"`
	PricePerHourCents int64  `json:"price_per_hour_cents"`
	Active            *bool  `json:"active,omitempty"`
}

// POST /api/v1/courts
func HandleCourtCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Court store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireOwner(w, r) {
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateCourtRequest(&req); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	if _, err := store.GetFacility(ctx, req.FacilityID); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	court := &booking.Court{
		FacilityID:        req.FacilityID,
		Name:              req.Name,
		OpeningTime:       req.OpeningTime,
		ClosingTime:       req.ClosingTime,
		PricePerHourCents: req.PricePerHourCents,
		Active:            true,
	}
	if req.Active != nil {
		court.Active = *req.Active
	}
	if err := store.CreateCourt(ctx, court); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().Int64("court_id", court.ID).Int64("facility_id", court.FacilityID).Msg("Court created")
	apiutil.WriteJSON(w, http.StatusCreated, court)
}

// GET /api/v1/courts?facility_id=
func HandleCourtList(w http.ResponseWriter, r *http.Request) {
	if store == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	facilityID, err := strconv.ParseInt(r.URL.Query().Get("facility_id"), 10, 64)
	if err != nil {
		apiutil.WriteDomainError(w, r, &booking.ValidationError{Field: "facility_id", Reason: "must be an integer"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	courts, err := store.ListCourts(ctx, facilityID)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": courts})
}

// GET /api/v1/courts/{id}
func HandleCourtGet(w http.ResponseWriter, r *http.Request) {
	if store == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := courtID(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	court, err := store.GetCourt(ctx, id)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, court)
}

// PUT /api/v1/courts/{id}
func HandleCourtUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireOwner(w, r) {
		return
	}

	id, err := courtID(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	var req courtRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateCourtRequest(&req); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	court, err := store.GetCourt(ctx, id)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	court.Name = req.Name
	court.OpeningTime = req.OpeningTime
	court.ClosingTime = req.ClosingTime
	court.PricePerHourCents = req.PricePerHourCents
	if req.Active != nil {
		court.Active = *req.Active
	}
	if err := store.UpdateCourt(ctx, court); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().Int64("court_id", court.ID).Msg("Court updated")
	apiutil.WriteJSON(w, http.StatusOK, court)
}

// DELETE /api/v1/courts/{id}
//
// Courts with booking history are deactivated instead of deleted so past
// bookings keep a valid reference.
func HandleCourtDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireOwner(w, r) {
		return
	}

	id, err := courtID(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtQueryTimeout)
	defer cancel()

	count, err := store.CountBookingsForCourt(ctx, id)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	if count > 0 {
		if err := store.DeactivateCourt(ctx, id); err != nil {
			apiutil.WriteDomainError(w, r, err)
			return
		}
		logger.Info().Int64("court_id", id).Int64("bookings", count).Msg("Court deactivated")
		apiutil.WriteJSON(w, http.StatusOK, map[string]any{"deactivated": true})
		return
	}

	if err := store.DeleteCourt(ctx, id); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	logger.Info().Int64("court_id", id).Msg("Court deleted")
	w.WriteHeader(http.StatusNoContent)
}

func courtID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &booking.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func validateCourtRequest(req *courtRequest) error {
	if req.Name == "" {
		return &booking.ValidationError{Field: "name", Reason: "is required"}
	}
	if req.PricePerHourCents < 0 {
		return &booking.ValidationError{Field: "price_per_hour_cents", Reason: "must not be negative"}
	}
	hours, err := timerange.NewRange(req.OpeningTime, req.ClosingTime)
	if err != nil {
		return &booking.ValidationError{Field: "operating_hours", Reason: err.Error()}
	}
	if hours.End <= hours.Start {
		return &booking.ValidationError{Field: "operating_hours", Reason: "closing must be after opening"}
	}
	return nil
}
