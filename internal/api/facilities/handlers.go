// internal/api/facilities/handlers.go
package facilities

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/booking"
)

var (
	store    booking.Store
	initOnce sync.Once
)

const facilityQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s booking.Store) {
	if s == nil {
		return
	}
	initOnce.Do(func() {
		store = s
	})
}

type createRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
}

// POST /api/v1/facilities
//
// New facilities start PENDING; their courts reject bookings until an admin
// approves them.
func HandleFacilityCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Facility store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	if !apiutil.RequireOwner(w, r) {
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		apiutil.WriteDomainError(w, r, &booking.ValidationError{Field: "name", Reason: "is required"})
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	facility := &booking.Facility{
		Name:     req.Name,
		OwnerID:  user.ID,
		Status:   booking.FacilityPending,
		Timezone: req.Timezone,
	}
	if err := store.CreateFacility(ctx, facility); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().Int64("facility_id", facility.ID).Int64("owner_id", user.ID).Msg("Facility created")
	apiutil.WriteJSON(w, http.StatusCreated, facility)
}

// GET /api/v1/facilities/{id}
func HandleFacilityGet(w http.ResponseWriter, r *http.Request) {
	if store == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		apiutil.WriteDomainError(w, r, &booking.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	facility, err := store.GetFacility(ctx, id)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, facility)
}

// POST /api/v1/facilities/{id}/approve
//
// Admin only. Approval is what opens the facility's courts for booking.
func HandleFacilityApprove(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := authz.RequireRole(r.Context(), authz.RoleAdmin); err != nil {
		status := http.StatusForbidden
		if err == authz.ErrUnauthenticated {
			status = http.StatusUnauthorized
		}
		apiutil.WriteJSON(w, status, apiutil.ErrorResponse{Code: "forbidden", Message: "Admin role required"})
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		apiutil.WriteDomainError(w, r, &booking.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), facilityQueryTimeout)
	defer cancel()

	facility, err := store.GetFacility(ctx, id)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	if facility.Status == booking.FacilityApproved {
		apiutil.WriteJSON(w, http.StatusOK, facility)
		return
	}

	facility.Status = booking.FacilityApproved
	if err := store.UpdateFacilityStatus(ctx, facility.ID, facility.Status); err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().Int64("facility_id", facility.ID).Msg("Facility approved")
	apiutil.WriteJSON(w, http.StatusOK, facility)
}
