// Package payments wraps the external payment provider behind a narrow
// gateway interface. The core surfaces provider failures as-is and never
// retries them.
package payments

import (
	"context"
	"errors"
)

// ErrUnhandledEvent marks webhook event types the booking lifecycle does not
// consume. Receivers should acknowledge and drop them.
var ErrUnhandledEvent = errors.New("unhandled event type")

// Charge is a provider-side payment order.
type Charge struct {
	Ref         string
	AmountCents int64
	Currency    string
}

// RefundResult references a provider-side refund.
type RefundResult struct {
	Ref string
}

// Event is a verified provider webhook event reduced to what the booking
// lifecycle needs.
type Event struct {
	ChargeRef     string
	BookingID     int64
	Paid          bool
	FailureReason string
}

// Gateway is the payment provider collaborator. Order creation and webhook
// signature verification are the provider's problem; the core only consumes
// the results.
type Gateway interface {
	CreateCharge(ctx context.Context, amountCents int64, metadata map[string]interface{}) (*Charge, error)
	CreateRefund(ctx context.Context, chargeRef string, amountCents int64, reason string) (*RefundResult, error)
	// VerifyEvent confirms a webhook event with the provider and returns
	// the charge outcome it describes.
	VerifyEvent(ctx context.Context, eventID string) (*Event, error)
}
