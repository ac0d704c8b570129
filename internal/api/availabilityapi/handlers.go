// internal/api/availabilityapi/handlers.go
package availabilityapi

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/availability"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/timerange"
)

var (
	store       booking.Store
	clock       clockwork.Clock
	granularity int
	initOnce    sync.Once
)

const availabilityQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s booking.Store, c clockwork.Clock, slotGranularityMinutes int) {
	if s == nil {
		return
	}
	initOnce.Do(func() {
		store = s
		clock = c
		if clock == nil {
			clock = clockwork.NewRealClock()
		}
		granularity = slotGranularityMinutes
		if granularity <= 0 {
			granularity = int(availability.DefaultGranularity)
		}
	})
}

// GET /api/v1/courts/{id}/availability?date=YYYY-MM-DD
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if store == nil {
		logger.Error().Msg("Availability store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || courtID <= 0 {
		apiutil.WriteDomainError(w, r, &booking.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(booking.DateLayout, date); err != nil {
		apiutil.WriteDomainError(w, r, &booking.ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	court, err := store.GetCourt(ctx, courtID)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	hours, err := court.OperatingRange()
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Court has invalid operating hours")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slots, err := availability.GenerateSlots(hours.Start, hours.End, timerange.Minutes(granularity))
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to generate slot grid")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bookings, err := store.ListActiveBookings(ctx, courtID, date)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	blocks, err := store.ListBlockedSlots(ctx, courtID, date)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	annotated := availability.Annotate(date, slots, bookings, blocks, clock.Now())
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"court_id": courtID,
		"date":     date,
		"slots":    annotated,
	})
}
