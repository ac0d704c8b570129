package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/booking"
)

const sendTimeout = 5 * time.Second

// Notifier delivers booking confirmation and cancellation emails. Sends run
// asynchronously on a detached context; failures are logged, never returned.
type Notifier struct {
	store  booking.Store
	client EmailSender
}

var _ booking.Notifier = (*Notifier)(nil)

func NewNotifier(store booking.Store, client EmailSender) *Notifier {
	return &Notifier{store: store, client: client}
}

// BookingConfirmed emails the member that payment cleared and the slot is
// theirs.
func (n *Notifier) BookingConfirmed(ctx context.Context, b *booking.Booking, user *booking.User) {
	recipient := n.recipient(ctx, b, user)
	if recipient == "" {
		return
	}

	facilityName, courtName := n.courtNames(ctx, b.CourtID)
	msg := BuildConfirmation(ConfirmationDetails{
		FacilityName: facilityName,
		CourtName:    courtName,
		Date:         b.Date,
		TimeRange:    FormatTimeRange(b.StartTime, b.EndTime),
		AmountCents:  b.AmountCents,
	})
	n.send(ctx, recipient, b.ID, msg)
}

// BookingCancelled emails the member about the cancellation and any refund.
func (n *Notifier) BookingCancelled(ctx context.Context, b *booking.Booking, refund *booking.Refund, user *booking.User) {
	recipient := n.recipient(ctx, b, user)
	if recipient == "" {
		return
	}

	facilityName, courtName := n.courtNames(ctx, b.CourtID)
	details := CancellationDetails{
		FacilityName: facilityName,
		CourtName:    courtName,
		Date:         b.Date,
		TimeRange:    FormatTimeRange(b.StartTime, b.EndTime),
		Reason:       b.CancellationReason.String,
	}
	if refund != nil {
		details.RefundCents = refund.AmountCents
		details.RefundPercentage = refund.Percentage
	}
	n.send(ctx, recipient, b.ID, BuildCancellation(details))
}

func (n *Notifier) recipient(ctx context.Context, b *booking.Booking, user *booking.User) string {
	if n == nil || n.client == nil {
		return ""
	}
	if user == nil {
		var err error
		user, err = n.store.GetUser(ctx, b.UserID)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Int64("user_id", b.UserID).Msg("Failed to load user for booking email")
			return ""
		}
	}
	if !user.Email.Valid {
		return ""
	}
	return strings.TrimSpace(user.Email.String)
}

func (n *Notifier) courtNames(ctx context.Context, courtID int64) (facilityName, courtName string) {
	court, err := n.store.GetCourt(ctx, courtID)
	if err != nil {
		return "", ""
	}
	courtName = court.Name
	if facility, err := n.store.GetFacility(ctx, court.FacilityID); err == nil {
		facilityName = facility.Name
	}
	return facilityName, courtName
}

func (n *Notifier) send(ctx context.Context, recipient string, bookingID int64, msg Message) {
	logger := log.Ctx(ctx).With().Int64("booking_id", bookingID).Logger()
	go func() {
		// Detach cancellation so handler-scoped contexts don't abort async
		// sends.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		if err := n.client.Send(sendCtx, recipient, msg.Subject, msg.Body); err != nil {
			logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send booking email")
		}
	}()
}
