// internal/api/blocksapi/handlers.go
package blocksapi

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/blocks"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/timerange"
)

var (
	manager  *blocks.Manager
	initOnce sync.Once
)

const blockQueryTimeout = 10 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(m *blocks.Manager) {
	if m == nil {
		return
	}
	initOnce.Do(func() {
		manager = m
	})
}

type rangeRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type blockRequest struct {
	Dates         []string       `json:"dates"`
	Ranges        []rangeRequest `json:"ranges"`
	Reason        string         `json:"reason,omitempty"`
	AllowOverride bool           `json:"allow_override,omitempty"`
}

type unblockRequest struct {
	Dates  []string       `json:"dates"`
	Ranges []rangeRequest `json:"ranges"`
}

// POST /api/v1/courts/{id}/blocks
func HandleBlockCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if manager == nil {
		logger.Error().Msg("Block manager not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireOwner(w, r) {
		return
	}

	courtID, err := courtID(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	var req blockRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dates, ranges, err := parseDatesAndRanges(req.Dates, req.Ranges, false)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), blockQueryTimeout)
	defer cancel()

	result, err := manager.Block(ctx, courtID, dates, ranges, req.Reason, req.AllowOverride)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.Conflicts) > 0 && len(result.Blocked) == 0 {
		status = http.StatusConflict
	}
	logger.Info().
		Int64("court_id", courtID).
		Int("blocked", len(result.Blocked)).
		Int("conflicts", len(result.Conflicts)).
		Msg("Block request processed")
	apiutil.WriteJSON(w, status, result)
}

// DELETE /api/v1/courts/{id}/blocks
func HandleBlockDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if manager == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !apiutil.RequireOwner(w, r) {
		return
	}

	courtID, err := courtID(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	var req unblockRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Omitting ranges clears every blocked slot on the given dates.
	dates, ranges, err := parseDatesAndRanges(req.Dates, req.Ranges, true)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), blockQueryTimeout)
	defer cancel()

	count, err := manager.Unblock(ctx, courtID, dates, ranges)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().Int64("court_id", courtID).Int64("unblocked", count).Msg("Unblock request processed")
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"unblocked": count})
}

func courtID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &booking.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func parseDatesAndRanges(dates []string, rawRanges []rangeRequest, allowEmptyRanges bool) ([]string, []timerange.Range, error) {
	if len(dates) == 0 {
		return nil, nil, &booking.ValidationError{Field: "dates", Reason: "at least one date is required"}
	}
	if len(rawRanges) == 0 && !allowEmptyRanges {
		return nil, nil, &booking.ValidationError{Field: "ranges", Reason: "at least one range is required"}
	}
	for _, date := range dates {
		if _, err := time.Parse(booking.DateLayout, date); err != nil {
			return nil, nil, &booking.ValidationError{Field: "dates", Reason: "must be YYYY-MM-DD dates"}
		}
	}
	ranges := make([]timerange.Range, 0, len(rawRanges))
	for _, raw := range rawRanges {
		rng, err := timerange.NewRange(raw.StartTime, raw.EndTime)
		if err != nil {
			return nil, nil, &booking.ValidationError{Field: "ranges", Reason: err.Error()}
		}
		if err := rng.Validate(1); err != nil {
			return nil, nil, &booking.ValidationError{Field: "ranges", Reason: err.Error()}
		}
		ranges = append(ranges, rng)
	}
	return dates, ranges, nil
}
