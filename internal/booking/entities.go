// Package booking holds the reservation core: entities, the booking
// lifecycle, the admission conflict detector, and the cancellation/refund
// policy engine.
package booking

import (
	"database/sql"
	"time"

	"github.com/codr1/Courtside/internal/timerange"
)

// DateLayout is the calendar-day format used throughout the core. Booking
// dates carry no time component and no timezone.
const DateLayout = "2006-01-02"

// Facility approval states. Courts of a facility accept bookings only when
// the facility is approved.
const (
	FacilityPending   = "PENDING"
	FacilityApproved  = "APPROVED"
	FacilitySuspended = "SUSPENDED"
)

type Facility struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	Status    string    `db:"status" json:"status"`
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Court is a bookable resource belonging to a facility. Operating hours are
// court-local "HH:MM" strings with opening strictly before closing.
type Court struct {
	ID                int64     `db:"id" json:"id"`
	FacilityID        int64     `db:"facility_id" json:"facility_id"`
	Name              string    `db:"name" json:"name"`
	OpeningTime       string    `db:"opening_time" json:"opening_time"`
	ClosingTime       string    `db:"closing_time" json:"closing_time"`
	PricePerHourCents int64     `db:"price_per_hour_cents" json:"price_per_hour_cents"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// OperatingRange returns the court's operating hours as a half-open range.
func (c *Court) OperatingRange() (timerange.Range, error) {
	return timerange.NewRange(c.OpeningTime, c.ClosingTime)
}

// Booking reserves one court for one contiguous range on one calendar date.
type Booking struct {
	ID                 int64          `db:"id" json:"id"`
	CourtID            int64          `db:"court_id" json:"court_id"`
	UserID             int64          `db:"user_id" json:"user_id"`
	Date               string         `db:"date" json:"date"`
	StartTime          string         `db:"start_time" json:"start_time"`
	EndTime            string         `db:"end_time" json:"end_time"`
	Status             Status         `db:"status" json:"status"`
	AmountCents        int64          `db:"amount_cents" json:"amount_cents"`
	ConfirmedAt        sql.NullTime   `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt        sql.NullTime   `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancellationReason sql.NullString `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Range returns the booking's time range.
func (b *Booking) Range() (timerange.Range, error) {
	return timerange.NewRange(b.StartTime, b.EndTime)
}

// StartsAt combines the booking's date and start time into a wall-clock
// instant in the process-local location. Venue timezones are deliberately
// not consulted; the whole core works in naive court-local time.
func (b *Booking) StartsAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" 15:04", b.Date+" "+b.StartTime, time.Local)
}

// EndsAt is the wall-clock end of the booking window.
func (b *Booking) EndsAt() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" 15:04", b.Date+" "+b.EndTime, time.Local)
}

// TimeSlot is an explicit maintenance block on a court/date/start. Unique
// per (court, date, start time).
type TimeSlot struct {
	ID          int64          `db:"id" json:"id"`
	CourtID     int64          `db:"court_id" json:"court_id"`
	Date        string         `db:"date" json:"date"`
	StartTime   string         `db:"start_time" json:"start_time"`
	EndTime     string         `db:"end_time" json:"end_time"`
	IsBlocked   bool           `db:"is_blocked" json:"is_blocked"`
	BlockReason sql.NullString `db:"block_reason" json:"block_reason,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Range returns the blocked time range.
func (s *TimeSlot) Range() (timerange.Range, error) {
	return timerange.NewRange(s.StartTime, s.EndTime)
}

// Payment statuses mirrored from the external gateway.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
)

type Payment struct {
	ID          int64     `db:"id" json:"id"`
	BookingID   int64     `db:"booking_id" json:"booking_id"`
	ProviderRef string    `db:"provider_ref" json:"provider_ref"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Refund statuses. A refund stays PENDING until the gateway acknowledges it.
const (
	RefundPending   = "PENDING"
	RefundCompleted = "COMPLETED"
)

type Refund struct {
	ID          int64          `db:"id" json:"id"`
	PaymentID   int64          `db:"payment_id" json:"payment_id"`
	BookingID   int64          `db:"booking_id" json:"booking_id"`
	AmountCents int64          `db:"amount_cents" json:"amount_cents"`
	Percentage  int64          `db:"percentage" json:"percentage"`
	Reason      string         `db:"reason" json:"reason"`
	Status      string         `db:"status" json:"status"`
	ProviderRef sql.NullString `db:"provider_ref" json:"provider_ref,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// User is the minimal member record the core keeps for contact purposes.
// Identity and authentication live elsewhere.
type User struct {
	ID    int64          `db:"id" json:"id"`
	Name  string         `db:"name" json:"name"`
	Email sql.NullString `db:"email" json:"email,omitempty"`
}
