package booking

import (
	"context"
	"time"

	"github.com/codr1/Courtside/internal/timerange"
)

// BookingFilter narrows booking listings.
type BookingFilter struct {
	CourtID int64
	UserID  int64
	Date    string
}

// Store abstracts the relational persistence the core needs. The sqlite
// implementation lives in internal/db; tests may substitute their own.
type Store interface {
	// Facilities
	GetFacility(ctx context.Context, id int64) (*Facility, error)
	CreateFacility(ctx context.Context, f *Facility) error
	UpdateFacilityStatus(ctx context.Context, id int64, status string) error

	// Courts
	GetCourt(ctx context.Context, id int64) (*Court, error)
	ListCourts(ctx context.Context, facilityID int64) ([]Court, error)
	CreateCourt(ctx context.Context, c *Court) error
	UpdateCourt(ctx context.Context, c *Court) error
	DeactivateCourt(ctx context.Context, id int64) error
	DeleteCourt(ctx context.Context, id int64) error
	CountBookingsForCourt(ctx context.Context, courtID int64) (int64, error)

	// Bookings
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	ListActiveBookings(ctx context.Context, courtID int64, date string) ([]Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// CreateIfFree atomically re-checks conflicts and inserts. Two
	// concurrent admissions for overlapping ranges must not both succeed;
	// the loser gets a ConflictError.
	CreateIfFree(ctx context.Context, b *Booking) error
	UpdateBooking(ctx context.Context, b *Booking) error
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)

	// Maintenance blocks
	ListBlockedSlots(ctx context.Context, courtID int64, date string) ([]TimeSlot, error)
	UpsertBlockedSlot(ctx context.Context, s *TimeSlot) error
	UnblockSlots(ctx context.Context, courtID int64, dates []string, ranges []timerange.Range) (int64, error)

	// Payments and refunds
	GetPaymentByBooking(ctx context.Context, bookingID int64) (*Payment, error)
	GetPaymentByProviderRef(ctx context.Context, ref string) (*Payment, error)
	CreatePayment(ctx context.Context, p *Payment) error
	UpdatePaymentStatus(ctx context.Context, id int64, status string) error
	SumCompletedRefunds(ctx context.Context, paymentID int64) (int64, error)
	CreateRefund(ctx context.Context, r *Refund) error

	// Users
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, u *User) error

	// RunInTx runs fn against a transaction-bound view of the store.
	RunInTx(ctx context.Context, fn func(Store) error) error
}

// Notifier delivers booking notifications. Implementations must tolerate
// being invoked best-effort; delivery failure never fails the operation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking, user *User)
	BookingCancelled(ctx context.Context, b *Booking, refund *Refund, user *User)
}
