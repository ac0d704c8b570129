package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3driver "github.com/mattn/go-sqlite3"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/timerange"
)

// Store implements booking.Store against SQLite. The zero value is not
// usable; construct with NewStore. Transaction-bound views produced by
// RunInTx share the same query code via the ext field.
type Store struct {
	db  *DB
	ext sqlx.ExtContext
}

var _ booking.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db, ext: db.DB}
}

// Facilities

func (s *Store) GetFacility(ctx context.Context, id int64) (*booking.Facility, error) {
	var f booking.Facility
	err := sqlx.GetContext(ctx, s.ext, &f,
		`SELECT * FROM facilities WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &booking.NotFoundError{Resource: "facility", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get facility %d: %w", id, err)
	}
	return &f, nil
}

func (s *Store) CreateFacility(ctx context.Context, f *booking.Facility) error {
	if f.Status == "" {
		f.Status = booking.FacilityPending
	}
	res, err := s.ext.ExecContext(ctx,
		`INSERT INTO facilities (name, owner_id, status, timezone) VALUES (?, ?, ?, ?)`,
		f.Name, f.OwnerID, f.Status, f.Timezone)
	if err != nil {
		return fmt.Errorf("create facility: %w", err)
	}
	f.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateFacilityStatus(ctx context.Context, id int64, status string) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE facilities SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update facility %d: %w", id, err)
	}
	return requireRow(res, &booking.NotFoundError{Resource: "facility", ID: id})
}

// Courts

func (s *Store) GetCourt(ctx context.Context, id int64) (*booking.Court, error) {
	var c booking.Court
	err := sqlx.GetContext(ctx, s.ext, &c,
		`SELECT * FROM courts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &booking.NotFoundError{Resource: "court", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get court %d: %w", id, err)
	}
	return &c, nil
}

func (s *Store) ListCourts(ctx context.Context, facilityID int64) ([]booking.Court, error) {
	var courts []booking.Court
	err := sqlx.SelectContext(ctx, s.ext, &courts,
		`SELECT * FROM courts WHERE facility_id = ? ORDER BY name`, facilityID)
	if err != nil {
		return nil, fmt.Errorf("list courts for facility %d: %w", facilityID, err)
	}
	return courts, nil
}

func (s *Store) CreateCourt(ctx context.Context, c *booking.Court) error {
	res, err := s.ext.ExecContext(ctx,
		`INSERT INTO courts (facility_id, name, opening_time, closing_time, price_per_hour_cents, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.FacilityID, c.Name, c.OpeningTime, c.ClosingTime, c.PricePerHourCents, c.Active)
	if err != nil {
		return fmt.Errorf("create court: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdateCourt(ctx context.Context, c *booking.Court) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE courts
		 SET name = ?, opening_time = ?, closing_time = ?, price_per_hour_cents = ?,
		     active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.Name, c.OpeningTime, c.ClosingTime, c.PricePerHourCents, c.Active, c.ID)
	if err != nil {
		return fmt.Errorf("update court %d: %w", c.ID, err)
	}
	return requireRow(res, &booking.NotFoundError{Resource: "court", ID: c.ID})
}

func (s *Store) DeactivateCourt(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE courts SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate court %d: %w", id, err)
	}
	return requireRow(res, &booking.NotFoundError{Resource: "court", ID: id})
}

func (s *Store) DeleteCourt(ctx context.Context, id int64) error {
	res, err := s.ext.ExecContext(ctx, `DELETE FROM courts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete court %d: %w", id, err)
	}
	return requireRow(res, &booking.NotFoundError{Resource: "court", ID: id})
}

func (s *Store) CountBookingsForCourt(ctx context.Context, courtID int64) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, s.ext, &count,
		`SELECT COUNT(*) FROM bookings WHERE court_id = ?`, courtID)
	if err != nil {
		return 0, fmt.Errorf("count bookings for court %d: %w", courtID, err)
	}
	return count, nil
}

// Bookings

func (s *Store) GetBooking(ctx context.Context, id int64) (*booking.Booking, error) {
	var b booking.Booking
	err := sqlx.GetContext(ctx, s.ext, &b,
		`SELECT * FROM bookings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &booking.NotFoundError{Resource: "booking", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &b, nil
}

func (s *Store) ListActiveBookings(ctx context.Context, courtID int64, date string) ([]booking.Booking, error) {
	var bookings []booking.Booking
	err := sqlx.SelectContext(ctx, s.ext, &bookings,
		`SELECT * FROM bookings
		 WHERE court_id = ? AND date = ? AND status IN ('PENDING', 'CONFIRMED')
		 ORDER BY start_time`,
		courtID, date)
	if err != nil {
		return nil, fmt.Errorf("list active bookings for court %d on %s: %w", courtID, date, err)
	}
	return bookings, nil
}

func (s *Store) ListBookings(ctx context.Context, filter booking.BookingFilter) ([]booking.Booking, error) {
	query := `SELECT * FROM bookings WHERE 1 = 1`
	var args []interface{}
	if filter.CourtID != 0 {
		query += ` AND court_id = ?`
		args = append(args, filter.CourtID)
	}
	if filter.UserID != 0 {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Date != "" {
		query += ` AND date = ?`
		args = append(args, filter.Date)
	}
	query += ` ORDER BY date, start_time`

	var bookings []booking.Booking
	if err := sqlx.SelectContext(ctx, s.ext, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// CreateIfFree re-checks for overlapping live bookings and blocked slots
// inside one transaction and inserts only when the range is free. Callers
// serialize per (court, date) above this, so the check-then-insert here
// cannot interleave with another admission for the same court and day; the
// partial unique index on (court_id, date, start_time) backstops anything
// that slips past both.
func (s *Store) CreateIfFree(ctx context.Context, b *booking.Booking) error {
	requested, err := b.Range()
	if err != nil {
		return err
	}

	return s.RunInTx(ctx, func(tx booking.Store) error {
		active, err := tx.ListActiveBookings(ctx, b.CourtID, b.Date)
		if err != nil {
			return err
		}
		for _, other := range active {
			otherRange, err := other.Range()
			if err != nil {
				return fmt.Errorf("booking %d has malformed range: %w", other.ID, err)
			}
			if otherRange.Overlaps(requested) {
				return &booking.ConflictError{CourtID: b.CourtID, Date: b.Date, Slot: otherRange}
			}
		}

		blocked, err := tx.ListBlockedSlots(ctx, b.CourtID, b.Date)
		if err != nil {
			return err
		}
		for _, slot := range blocked {
			slotRange, err := slot.Range()
			if err != nil {
				return fmt.Errorf("blocked slot %d has malformed range: %w", slot.ID, err)
			}
			if slotRange.Overlaps(requested) {
				return &booking.ConflictError{CourtID: b.CourtID, Date: b.Date, Slot: slotRange}
			}
		}

		txs := tx.(*Store)
		res, err := txs.ext.ExecContext(ctx,
			`INSERT INTO bookings (court_id, user_id, date, start_time, end_time, status, amount_cents)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.CourtID, b.UserID, b.Date, b.StartTime, b.EndTime, b.Status, b.AmountCents)
		if err != nil {
			if isUniqueViolation(err) {
				return &booking.ConflictError{CourtID: b.CourtID, Date: b.Date, Slot: requested}
			}
			return fmt.Errorf("insert booking: %w", err)
		}
		b.ID, err = res.LastInsertId()
		return err
	})
}

func (s *Store) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE bookings
		 SET status = ?, confirmed_at = ?, cancelled_at = ?, cancellation_reason = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		b.Status, b.ConfirmedAt, b.CancelledAt, b.CancellationReason, b.ID)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	return requireRow(res, &booking.NotFoundError{Resource: "booking", ID: b.ID})
}

// CompleteElapsed moves confirmed bookings whose window has fully passed to
// COMPLETED and returns how many changed. Times compare lexicographically
// because both columns hold zero-padded "HH:MM".
func (s *Store) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	today := now.Format(booking.DateLayout)
	clock := now.Format("15:04")
	res, err := s.ext.ExecContext(ctx,
		`UPDATE bookings
		 SET status = 'COMPLETED', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'CONFIRMED' AND (date < ? OR (date = ? AND end_time <= ?))`,
		today, today, clock)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed bookings: %w", err)
	}
	return res.RowsAffected()
}

// Maintenance blocks

func (s *Store) ListBlockedSlots(ctx context.Context, courtID int64, date string) ([]booking.TimeSlot, error) {
	var slots []booking.TimeSlot
	err := sqlx.SelectContext(ctx, s.ext, &slots,
		`SELECT * FROM time_slots
		 WHERE court_id = ? AND date = ? AND is_blocked = TRUE
		 ORDER BY start_time`,
		courtID, date)
	if err != nil {
		return nil, fmt.Errorf("list blocked slots for court %d on %s: %w", courtID, date, err)
	}
	return slots, nil
}

// UpsertBlockedSlot inserts the block or, if the (court, date, start) row
// already exists, re-blocks it with the new end and reason.
func (s *Store) UpsertBlockedSlot(ctx context.Context, slot *booking.TimeSlot) error {
	_, err := s.ext.ExecContext(ctx,
		`INSERT INTO time_slots (court_id, date, start_time, end_time, is_blocked, block_reason)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (court_id, date, start_time) DO UPDATE
		 SET end_time = excluded.end_time,
		     is_blocked = excluded.is_blocked,
		     block_reason = excluded.block_reason,
		     updated_at = CURRENT_TIMESTAMP`,
		slot.CourtID, slot.Date, slot.StartTime, slot.EndTime, slot.IsBlocked, slot.BlockReason)
	if err != nil {
		return fmt.Errorf("upsert blocked slot: %w", err)
	}
	return nil
}

func (s *Store) UnblockSlots(ctx context.Context, courtID int64, dates []string, ranges []timerange.Range) (int64, error) {
	var total int64
	for _, date := range dates {
		for _, rng := range ranges {
			res, err := s.ext.ExecContext(ctx,
				`UPDATE time_slots
				 SET is_blocked = FALSE, block_reason = NULL, updated_at = CURRENT_TIMESTAMP
				 WHERE court_id = ? AND date = ? AND start_time = ? AND end_time = ?
				   AND is_blocked = TRUE`,
				courtID, date, rng.Start.Clock(), rng.End.Clock())
			if err != nil {
				return total, fmt.Errorf("unblock court %d on %s %s: %w", courtID, date, rng, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

// Payments and refunds

func (s *Store) GetPaymentByBooking(ctx context.Context, bookingID int64) (*booking.Payment, error) {
	var p booking.Payment
	err := sqlx.GetContext(ctx, s.ext, &p,
		`SELECT * FROM payments WHERE booking_id = ? ORDER BY id DESC LIMIT 1`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &booking.NotFoundError{Resource: "payment", ID: bookingID}
	}
	if err != nil {
		return nil, fmt.Errorf("get payment for booking %d: %w", bookingID, err)
	}
	return &p, nil
}

func (s *Store) GetPaymentByProviderRef(ctx context.Context, ref string) (*booking.Payment, error) {
	var p booking.Payment
	err := sqlx.GetContext(ctx, s.ext, &p,
		`SELECT * FROM payments WHERE provider_ref = ?`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &booking.NotFoundError{Resource: "payment", ID: 0}
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by provider ref %s: %w", ref, err)
	}
	return &p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *booking.Payment) error {
	res, err := s.ext.ExecContext(ctx,
		`INSERT INTO payments (booking_id, provider_ref, amount_cents, status)
		 VALUES (?, ?, ?, ?)`,
		p.BookingID, p.ProviderRef, p.AmountCents, p.Status)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id int64, status string) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id)
	if err != nil {
		return fmt.Errorf("update payment %d: %w", id, err)
	}
	return requireRow(res, &booking.NotFoundError{Resource: "payment", ID: id})
}

func (s *Store) SumCompletedRefunds(ctx context.Context, paymentID int64) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, s.ext, &sum,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM refunds
		 WHERE payment_id = ? AND status = 'COMPLETED'`,
		paymentID)
	if err != nil {
		return 0, fmt.Errorf("sum refunds for payment %d: %w", paymentID, err)
	}
	return sum, nil
}

func (s *Store) CreateRefund(ctx context.Context, r *booking.Refund) error {
	res, err := s.ext.ExecContext(ctx,
		`INSERT INTO refunds (payment_id, booking_id, amount_cents, percentage, reason, status, provider_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.PaymentID, r.BookingID, r.AmountCents, r.Percentage, r.Reason, r.Status, r.ProviderRef)
	if err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// Users

func (s *Store) GetUser(ctx context.Context, id int64) (*booking.User, error) {
	var u booking.User
	err := sqlx.GetContext(ctx, s.ext, &u,
		`SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &booking.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *booking.User) error {
	res, err := s.ext.ExecContext(ctx,
		`INSERT INTO users (name, email) VALUES (?, ?)`, u.Name, u.Email)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// RunInTx runs fn against a transaction-bound Store. Nested calls reuse the
// outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(booking.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3driver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3driver.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3driver.ErrConstraintPrimaryKey
	}
	return false
}
