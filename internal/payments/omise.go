package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// BookingIDMetadataKey is attached to every charge so webhook events can be
// routed back to their booking.
const BookingIDMetadataKey = "booking_id"

// OmiseGateway implements Gateway against the Omise API.
type OmiseGateway struct {
	client   *omise.Client
	currency string
}

// NewOmiseGateway builds a gateway from the configured key pair.
func NewOmiseGateway(publicKey, secretKey, currency string) (*OmiseGateway, error) {
	if publicKey == "" || secretKey == "" {
		return nil, fmt.Errorf("omise keys are required")
	}
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("create omise client: %w", err)
	}
	client.SetDebug(false)
	if currency == "" {
		currency = "usd"
	}
	return &OmiseGateway{client: client, currency: currency}, nil
}

func (g *OmiseGateway) CreateCharge(ctx context.Context, amountCents int64, metadata map[string]interface{}) (*Charge, error) {
	charge := &omise.Charge{}
	err := g.client.Do(charge, &operations.CreateCharge{
		Amount:   amountCents,
		Currency: g.currency,
		Metadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	return &Charge{
		Ref:         charge.ID,
		AmountCents: charge.Amount,
		Currency:    charge.Currency,
	}, nil
}

func (g *OmiseGateway) CreateRefund(ctx context.Context, chargeRef string, amountCents int64, reason string) (*RefundResult, error) {
	refund := &omise.Refund{}
	err := g.client.Do(refund, &operations.CreateRefund{
		ChargeID: chargeRef,
		Amount:   amountCents,
		Metadata: map[string]interface{}{"reason": reason},
	})
	if err != nil {
		return nil, fmt.Errorf("create refund for charge %s: %w", chargeRef, err)
	}
	return &RefundResult{Ref: refund.ID}, nil
}

// VerifyEvent re-fetches the event from Omise rather than trusting the
// webhook payload, then extracts the charge outcome.
func (g *OmiseGateway) VerifyEvent(ctx context.Context, eventID string) (*Event, error) {
	ev := &omise.Event{}
	if err := g.client.Do(ev, &operations.RetrieveEvent{EventID: eventID}); err != nil {
		return nil, fmt.Errorf("retrieve event %s: %w", eventID, err)
	}
	if ev.Key != "charge.complete" {
		return nil, fmt.Errorf("%w: %q", ErrUnhandledEvent, ev.Key)
	}

	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	var charge omise.Charge
	if err := json.Unmarshal(raw, &charge); err != nil {
		return nil, fmt.Errorf("decode charge from event: %w", err)
	}

	event := &Event{
		ChargeRef: charge.ID,
		BookingID: bookingIDFromMetadata(charge.Metadata),
		Paid:      charge.Status == "successful",
	}
	if charge.FailureCode != nil {
		event.FailureReason = *charge.FailureCode
	}
	return event, nil
}

func bookingIDFromMetadata(metadata map[string]interface{}) int64 {
	switch v := metadata[BookingIDMetadataKey].(type) {
	case string:
		id, _ := strconv.ParseInt(v, 10, 64)
		return id
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
