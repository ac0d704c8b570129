package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/keylock"
	"github.com/codr1/Courtside/internal/payments"
	"github.com/codr1/Courtside/internal/timerange"
)

// ServiceConfig wires the service's collaborators. Store is required;
// everything else degrades gracefully when absent.
type ServiceConfig struct {
	Store       Store
	Gateway     payments.Gateway
	Publisher   *events.Publisher
	Notifier    Notifier
	Clock       clockwork.Clock
	Locks       *keylock.KeyedMutex
	MinDuration timerange.Minutes
}

// Service implements booking admission, cancellation, and the payment-driven
// lifecycle transitions.
type Service struct {
	store       Store
	gateway     payments.Gateway
	publisher   *events.Publisher
	notifier    Notifier
	clock       clockwork.Clock
	locks       *keylock.KeyedMutex
	minDuration timerange.Minutes
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Locks == nil {
		cfg.Locks = keylock.New()
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = timerange.DefaultMinDuration
	}
	return &Service{
		store:       cfg.Store,
		gateway:     cfg.Gateway,
		publisher:   cfg.Publisher,
		notifier:    cfg.Notifier,
		clock:       cfg.Clock,
		locks:       cfg.Locks,
		minDuration: cfg.MinDuration,
	}
}

// Locks exposes the per-(court,date) lock set so the maintenance manager can
// serialize against admissions.
func (s *Service) Locks() *keylock.KeyedMutex {
	return s.locks
}

// AvailabilityKey is the lock key guarding one (court, date) availability
// set. Admission and maintenance blocking must both hold it.
func AvailabilityKey(courtID int64, date string) string {
	return fmt.Sprintf("court:%d|%s", courtID, date)
}

// CreateRequest asks for one court, one date, one contiguous range.
type CreateRequest struct {
	CourtID   int64  `json:"court_id"`
	UserID    int64  `json:"user_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Create admits a booking request. On success the booking is PENDING and a
// payment order has been attempted; a gateway failure leaves the booking
// PENDING with no payment rather than failing the admission.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Booking, *Payment, error) {
	court, err := s.store.GetCourt(ctx, req.CourtID)
	if err != nil {
		return nil, nil, err
	}
	if !court.Active {
		return nil, nil, &PolicyError{Reason: fmt.Sprintf("court %d is not active", court.ID)}
	}
	facility, err := s.store.GetFacility(ctx, court.FacilityID)
	if err != nil {
		return nil, nil, err
	}
	if facility.Status != FacilityApproved {
		return nil, nil, &PolicyError{Reason: fmt.Sprintf("facility %d is not approved for bookings", facility.ID)}
	}

	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return nil, nil, &ValidationError{Field: "date", Reason: "must be a YYYY-MM-DD date"}
	}
	rng, err := timerange.NewRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, nil, &ValidationError{Field: "time", Reason: err.Error()}
	}
	if err := rng.Validate(s.minDuration); err != nil {
		return nil, nil, &ValidationError{Field: "time", Reason: err.Error()}
	}
	hours, err := court.OperatingRange()
	if err != nil {
		return nil, nil, fmt.Errorf("court %d has invalid operating hours: %w", court.ID, err)
	}
	if !hours.Contains(rng) {
		return nil, nil, &ValidationError{
			Field:  "time",
			Reason: fmt.Sprintf("must be within operating hours %s", hours),
		}
	}

	b := &Booking{
		CourtID:     court.ID,
		UserID:      req.UserID,
		Date:        req.Date,
		StartTime:   rng.Start.Clock(),
		EndTime:     rng.End.Clock(),
		Status:      StatusPending,
		AmountCents: amountCents(rng, court.PricePerHourCents),
	}

	// The conflict re-check and the insert must be atomic against other
	// admissions and maintenance blocks for the same (court, date).
	unlock := s.locks.Lock(AvailabilityKey(court.ID, req.Date))
	err = s.store.CreateIfFree(ctx, b)
	unlock()
	if err != nil {
		return nil, nil, err
	}

	payment := s.createPaymentOrder(ctx, b)

	s.publish(ctx, events.KeyBookingCreated, map[string]any{
		"booking_id": b.ID,
		"court_id":   b.CourtID,
		"user_id":    b.UserID,
		"date":       b.Date,
		"start_time": b.StartTime,
		"end_time":   b.EndTime,
	})
	return b, payment, nil
}

// amountCents prices a range at pricePerHour, prorated by the minute and
// rounded half-up to whole cents.
func amountCents(rng timerange.Range, pricePerHourCents int64) int64 {
	minutes := int64(rng.Duration())
	return (minutes*pricePerHourCents + 30) / 60
}

func (s *Service) createPaymentOrder(ctx context.Context, b *Booking) *Payment {
	if s.gateway == nil {
		return nil
	}
	charge, err := s.gateway.CreateCharge(ctx, b.AmountCents, map[string]interface{}{
		payments.BookingIDMetadataKey: strconv.FormatInt(b.ID, 10),
	})
	if err != nil {
		// The booking stays PENDING and payable later; gateway outages
		// must not unwind an admitted slot.
		log.Ctx(ctx).Warn().Err(err).Int64("booking_id", b.ID).Msg("Payment order creation failed")
		return nil
	}
	payment := &Payment{
		BookingID:   b.ID,
		ProviderRef: charge.Ref,
		AmountCents: b.AmountCents,
		Status:      PaymentPending,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("booking_id", b.ID).Msg("Failed to record payment order")
		return nil
	}
	return payment
}

// Get loads one booking.
func (s *Service) Get(ctx context.Context, id int64) (*Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// List returns bookings matching the filter, ordered by date and start.
func (s *Service) List(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	return s.store.ListBookings(ctx, filter)
}

// Cancel applies the cancellation policy and, when allowed, cancels the
// booking and issues any refund the policy grants.
func (s *Service) Cancel(ctx context.Context, bookingID int64, reason string) (*Booking, *Refund, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	outcome := EvaluateCancellation(b, now)
	if !outcome.Allowed {
		return nil, nil, &PolicyError{Reason: outcome.Reason}
	}
	if reason == "" {
		reason = outcome.Reason
	}

	refund, err := s.cancel(ctx, b, now, outcome.RefundPercentage, reason)
	if err != nil {
		return nil, nil, err
	}
	return b, refund, nil
}

// CancelForMaintenance cancels a booking on behalf of an owner-initiated
// maintenance block. The notice-window rule does not apply and any completed
// payment is refunded in full.
func (s *Service) CancelForMaintenance(ctx context.Context, b *Booking, reason string) (*Refund, error) {
	if b.Status.Terminal() {
		return nil, &StateError{From: b.Status, To: StatusCancelled}
	}
	return s.cancel(ctx, b, s.clock.Now(), fullRefundPercentage, reason)
}

// cancel is the shared cancellation mechanics. The gateway refund is issued
// first so that a provider failure leaves the booking untouched; the status
// change and the refund record then commit in one transaction.
func (s *Service) cancel(ctx context.Context, b *Booking, now time.Time, refundPct int64, reason string) (*Refund, error) {
	payment, err := s.store.GetPaymentByBooking(ctx, b.ID)
	if err != nil {
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		payment = nil
	}

	var refund *Refund
	if payment != nil && payment.Status == PaymentCompleted && refundPct > 0 {
		refunded, err := s.store.SumCompletedRefunds(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		amount := RefundAmountCents(b.AmountCents, refundPct, payment.AmountCents-refunded)
		if amount > 0 {
			refund = &Refund{
				PaymentID:   payment.ID,
				BookingID:   b.ID,
				AmountCents: amount,
				Percentage:  refundPct,
				Reason:      reason,
				Status:      RefundPending,
			}
			if s.gateway != nil {
				result, err := s.gateway.CreateRefund(ctx, payment.ProviderRef, amount, reason)
				if err != nil {
					return nil, &GatewayError{Op: "refund", Err: err}
				}
				refund.Status = RefundCompleted
				refund.ProviderRef = sql.NullString{String: result.Ref, Valid: true}
			}
		}
	}

	err = s.store.RunInTx(ctx, func(tx Store) error {
		if err := b.Transition(StatusCancelled); err != nil {
			return err
		}
		b.CancelledAt = sql.NullTime{Time: now, Valid: true}
		b.CancellationReason = sql.NullString{String: reason, Valid: true}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		if refund != nil {
			if err := tx.CreateRefund(ctx, refund); err != nil {
				return err
			}
			if refund.Status == RefundCompleted {
				return tx.UpdatePaymentStatus(ctx, payment.ID, PaymentRefunded)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		user, userErr := s.store.GetUser(ctx, b.UserID)
		if userErr == nil {
			s.notifier.BookingCancelled(ctx, b, refund, user)
		}
	}
	s.publish(ctx, events.KeyBookingCancelled, map[string]any{
		"booking_id": b.ID,
		"court_id":   b.CourtID,
		"reason":     reason,
	})
	return refund, nil
}

// HandlePaymentEvent applies a verified gateway event to the payment and the
// booking lifecycle. A paid charge confirms a PENDING booking; a failed one
// marks the payment FAILED and leaves the booking PENDING.
func (s *Service) HandlePaymentEvent(ctx context.Context, ev *payments.Event) (*Booking, error) {
	payment, err := s.store.GetPaymentByProviderRef(ctx, ev.ChargeRef)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBooking(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	if !ev.Paid {
		if err := s.store.UpdatePaymentStatus(ctx, payment.ID, PaymentFailed); err != nil {
			return nil, err
		}
		log.Ctx(ctx).Warn().
			Int64("booking_id", b.ID).
			Str("reason", ev.FailureReason).
			Msg("Payment failed; booking remains pending")
		return b, nil
	}

	// Repeated deliveries of the same paid event are no-ops.
	if b.Status == StatusConfirmed && payment.Status == PaymentCompleted {
		return b, nil
	}

	if err := b.Transition(StatusConfirmed); err != nil {
		return nil, err
	}
	b.ConfirmedAt = sql.NullTime{Time: s.clock.Now(), Valid: true}

	err = s.store.RunInTx(ctx, func(tx Store) error {
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		return tx.UpdatePaymentStatus(ctx, payment.ID, PaymentCompleted)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		user, userErr := s.store.GetUser(ctx, b.UserID)
		if userErr == nil {
			s.notifier.BookingConfirmed(ctx, b, user)
		}
	}
	s.publish(ctx, events.KeyBookingConfirmed, map[string]any{
		"booking_id": b.ID,
		"court_id":   b.CourtID,
	})
	return b, nil
}

func (s *Service) publish(ctx context.Context, key string, payload map[string]any) {
	if err := s.publisher.PublishJSON(ctx, key, payload); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("routing_key", key).Msg("Failed to publish event")
	}
}
