package booking

import "time"

// Refund tier boundaries. Percentages step down as notice shrinks and hit
// zero once the booking start has passed.
const (
	fullRefundNotice    = 24 * time.Hour
	partialRefundNotice = 12 * time.Hour

	fullRefundPercentage    = 100
	partialRefundPercentage = 50
)

// CancellationOutcome is the policy engine's verdict on a cancellation
// request.
type CancellationOutcome struct {
	Allowed          bool  `json:"allowed"`
	RefundPercentage int64 `json:"refund_percentage"`
	Reason           string `json:"reason"`
}

// EvaluateCancellation applies the time-based cancellation policy. The
// booking start is naive court-local wall-clock time; now is expected in the
// same frame (the service passes its injected clock).
func EvaluateCancellation(b *Booking, now time.Time) CancellationOutcome {
	switch b.Status {
	case StatusCancelled:
		return CancellationOutcome{Reason: "already cancelled"}
	case StatusCompleted:
		return CancellationOutcome{Reason: "already completed"}
	}

	startsAt, err := b.StartsAt()
	if err != nil {
		return CancellationOutcome{Reason: "booking has an invalid start time"}
	}
	if !startsAt.After(now) {
		return CancellationOutcome{Reason: "already started or passed"}
	}

	notice := startsAt.Sub(now)
	switch {
	case notice >= fullRefundNotice:
		return CancellationOutcome{
			Allowed:          true,
			RefundPercentage: fullRefundPercentage,
			Reason:           "full refund, 24 hours or more notice",
		}
	case notice >= partialRefundNotice:
		return CancellationOutcome{
			Allowed:          true,
			RefundPercentage: partialRefundPercentage,
			Reason:           "partial refund, 12-24 hours notice",
		}
	default:
		return CancellationOutcome{
			Allowed: true,
			Reason:  "no refund, less than 12 hours notice",
		}
	}
}

// RefundAmountCents computes the refund for a percentage of the booking
// amount, rounded to whole cents and capped at what remains refundable on
// the payment.
func RefundAmountCents(bookingAmount, percentage, remaining int64) int64 {
	// Round half up to whole cents.
	amount := (bookingAmount*percentage + 50) / 100
	if amount > remaining {
		amount = remaining
	}
	if amount < 0 {
		return 0
	}
	return amount
}
