// internal/api/bookings/handlers.go
package bookings

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
	"github.com/codr1/Courtside/internal/ratelimit"
)

var (
	svc        *booking.Service
	limiter    *ratelimit.Limiter
	trustProxy bool
	initOnce   sync.Once
)

const bookingQueryTimeout = 10 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(service *booking.Service, rl *ratelimit.Limiter, trustProxyHeaders bool) {
	if service == nil {
		return
	}
	initOnce.Do(func() {
		svc = service
		limiter = rl
		trustProxy = trustProxyHeaders
	})
}

type createRequest struct {
	CourtID   int64  `json:"court_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	if limiter != nil {
		userKey := strconv.FormatInt(user.ID, 10)
		ip := ratelimit.GetClientIP(r, trustProxy)
		if result := limiter.CheckCreate(userKey, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(userKey, ip, result.Reason)
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			apiutil.WriteJSON(w, http.StatusTooManyRequests, apiutil.ErrorResponse{
				Code:    "rate_limited",
				Message: "Too many booking attempts, slow down",
			})
			return
		}
		limiter.RecordCreate(userKey, ip)
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, payment, err := svc.Create(ctx, booking.CreateRequest{
		CourtID:   req.CourtID,
		UserID:    user.ID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().
		Int64("booking_id", b.ID).
		Int64("court_id", b.CourtID).
		Str("date", b.Date).
		Msg("Booking created")
	apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"booking": b,
		"payment": payment,
	})
}

// GET /api/v1/bookings/{id}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	if svc == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := bookingID(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	b, err := svc.Get(ctx, id)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	if !canView(user, b) {
		apiutil.WriteJSON(w, http.StatusForbidden, apiutil.ErrorResponse{
			Code:    "forbidden",
			Message: "Forbidden",
		})
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, b)
}

// GET /api/v1/bookings?court_id=&user_id=&date=
func HandleBookingList(w http.ResponseWriter, r *http.Request) {
	if svc == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	// Members only see their own bookings; owners may filter freely.
	if !authz.IsOwner(user) {
		filter.UserID = user.ID
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	list, err := svc.List(ctx, filter)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

// POST /api/v1/bookings/{id}/cancel
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if svc == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := bookingID(r)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	var req cancelRequest
	if r.ContentLength > 0 {
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	existing, err := svc.Get(ctx, id)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}
	if !canView(user, existing) {
		apiutil.WriteJSON(w, http.StatusForbidden, apiutil.ErrorResponse{
			Code:    "forbidden",
			Message: "Forbidden",
		})
		return
	}

	b, refund, err := svc.Cancel(ctx, id, req.Reason)
	if err != nil {
		apiutil.WriteDomainError(w, r, err)
		return
	}

	logger.Info().Int64("booking_id", b.ID).Msg("Booking cancelled")
	apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"booking": b,
		"refund":  refund,
	})
}

func bookingID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &booking.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func canView(user *authz.AuthUser, b *booking.Booking) bool {
	return authz.IsOwner(user) || b.UserID == user.ID
}

func parseFilter(r *http.Request) (booking.BookingFilter, error) {
	var filter booking.BookingFilter
	q := r.URL.Query()

	if raw := q.Get("court_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, &booking.ValidationError{Field: "court_id", Reason: "must be an integer"}
		}
		filter.CourtID = id
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, &booking.ValidationError{Field: "user_id", Reason: "must be an integer"}
		}
		filter.UserID = id
	}
	if raw := q.Get("date"); raw != "" {
		if _, err := time.Parse(booking.DateLayout, raw); err != nil {
			return filter, &booking.ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
		}
		filter.Date = raw
	}
	return filter, nil
}
