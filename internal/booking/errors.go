package booking

import (
	"fmt"

	"github.com/codr1/Courtside/internal/timerange"
)

// ValidationError reports malformed input: bad time format, inverted
// ordering, out-of-hours range. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports an absent court, booking, or payment.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// PolicyError reports a request the business rules forbid: inactive court,
// unapproved facility, cancellation window elapsed. Fatal to the request.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// ConflictError reports a requested range that overlaps an existing active
// booking or a blocked slot. A race loser in concurrent admission surfaces
// the same error; callers must re-query availability before retrying.
type ConflictError struct {
	CourtID int64
	Date    string
	Slot    timerange.Range
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("court %d is not available on %s for %s", e.CourtID, e.Date, e.Slot)
}

// StateError reports an illegal lifecycle transition.
type StateError struct {
	From Status
	To   Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot transition booking from %s to %s", e.From, e.To)
}

// GatewayError wraps a payment-provider failure. Booking and refund state
// remain consistent when it is returned: nothing was committed.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
