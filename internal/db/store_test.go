package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/testutil"
	"github.com/codr1/Courtside/internal/timerange"
)

func seedCourt(t *testing.T, store *db.Store) *booking.Court {
	t.Helper()
	facilityID := testutil.SeedFacility(t, store)
	return testutil.SeedCourt(t, store, facilityID, "06:00", "22:00")
}

func newBooking(courtID, userID int64, date, start, end string) *booking.Booking {
	return &booking.Booking{
		CourtID:     courtID,
		UserID:      userID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Status:      booking.StatusPending,
		AmountCents: 2500,
	}
}

func mustRange(t *testing.T, start, end string) timerange.Range {
	t.Helper()
	rng, err := timerange.NewRange(start, end)
	if err != nil {
		t.Fatalf("range %s-%s: %v", start, end, err)
	}
	return rng
}

func TestCreateIfFreeRejectsOverlap(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	userID := testutil.SeedUser(t, store, "a@example.com")
	ctx := context.Background()

	if err := store.CreateIfFree(ctx, newBooking(court.ID, userID, "2026-09-10", "10:00", "11:00")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	var cerr *booking.ConflictError
	err := store.CreateIfFree(ctx, newBooking(court.ID, userID, "2026-09-10", "10:30", "11:30"))
	if !errors.As(err, &cerr) {
		t.Fatalf("overlap err = %v, want ConflictError", err)
	}

	// A different date never conflicts.
	if err := store.CreateIfFree(ctx, newBooking(court.ID, userID, "2026-09-11", "10:30", "11:30")); err != nil {
		t.Fatalf("other date: %v", err)
	}
}

func TestCreateIfFreeIgnoresCancelledBookings(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	userID := testutil.SeedUser(t, store, "a@example.com")
	ctx := context.Background()

	b := newBooking(court.ID, userID, "2026-09-10", "10:00", "11:00")
	if err := store.CreateIfFree(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	b.Status = booking.StatusCancelled
	b.CancelledAt = sql.NullTime{Time: time.Now(), Valid: true}
	if err := store.UpdateBooking(ctx, b); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The slot is free again, including the exact same start. The unique
	// index only covers live statuses.
	if err := store.CreateIfFree(ctx, newBooking(court.ID, userID, "2026-09-10", "10:00", "11:00")); err != nil {
		t.Fatalf("rebook cancelled slot: %v", err)
	}
}

func TestCreateIfFreeRejectsBlockedSlot(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	userID := testutil.SeedUser(t, store, "a@example.com")
	ctx := context.Background()

	slot := &booking.TimeSlot{
		CourtID:     court.ID,
		Date:        "2026-09-10",
		StartTime:   "10:00",
		EndTime:     "12:00",
		IsBlocked:   true,
		BlockReason: sql.NullString{String: "resurfacing", Valid: true},
	}
	if err := store.UpsertBlockedSlot(ctx, slot); err != nil {
		t.Fatalf("block: %v", err)
	}

	var cerr *booking.ConflictError
	err := store.CreateIfFree(ctx, newBooking(court.ID, userID, "2026-09-10", "11:00", "13:00"))
	if !errors.As(err, &cerr) {
		t.Fatalf("blocked err = %v, want ConflictError", err)
	}

	// The edge of the block is bookable.
	if err := store.CreateIfFree(ctx, newBooking(court.ID, userID, "2026-09-10", "12:00", "13:00")); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}
}

func TestUpsertBlockedSlotIsIdempotent(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	ctx := context.Background()

	slot := &booking.TimeSlot{
		CourtID:     court.ID,
		Date:        "2026-09-10",
		StartTime:   "10:00",
		EndTime:     "11:00",
		IsBlocked:   true,
		BlockReason: sql.NullString{String: "net repair", Valid: true},
	}
	if err := store.UpsertBlockedSlot(ctx, slot); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	slot.EndTime = "12:00"
	if err := store.UpsertBlockedSlot(ctx, slot); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	blocked, err := store.ListBlockedSlots(ctx, court.ID, "2026-09-10")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocked) != 1 {
		t.Fatalf("blocked slots = %d, want 1", len(blocked))
	}
	if blocked[0].EndTime != "12:00" {
		t.Errorf("end_time = %s, want 12:00", blocked[0].EndTime)
	}
}

func TestUnblockSlots(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	ctx := context.Background()

	rng := mustRange(t, "10:00", "11:00")

	// Unblocking a slot that was never blocked is a no-op.
	n, err := store.UnblockSlots(ctx, court.ID, []string{"2026-09-10"}, []timerange.Range{rng})
	if err != nil {
		t.Fatalf("unblock empty: %v", err)
	}
	if n != 0 {
		t.Errorf("unblocked = %d, want 0", n)
	}

	for _, date := range []string{"2026-09-10", "2026-09-11"} {
		err := store.UpsertBlockedSlot(ctx, &booking.TimeSlot{
			CourtID:   court.ID,
			Date:      date,
			StartTime: "10:00",
			EndTime:   "11:00",
			IsBlocked: true,
		})
		if err != nil {
			t.Fatalf("block %s: %v", date, err)
		}
	}

	n, err = store.UnblockSlots(ctx, court.ID, []string{"2026-09-10", "2026-09-11"}, []timerange.Range{rng})
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if n != 2 {
		t.Errorf("unblocked = %d, want 2", n)
	}

	blocked, err := store.ListBlockedSlots(ctx, court.ID, "2026-09-10")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("blocked slots after unblock = %d, want 0", len(blocked))
	}
}

func TestCompleteElapsed(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	userID := testutil.SeedUser(t, store, "a@example.com")
	ctx := context.Background()

	confirm := func(date, start, end string) *booking.Booking {
		b := newBooking(court.ID, userID, date, start, end)
		if err := store.CreateIfFree(ctx, b); err != nil {
			t.Fatalf("insert %s %s: %v", date, start, err)
		}
		b.Status = booking.StatusConfirmed
		b.ConfirmedAt = sql.NullTime{Time: time.Now(), Valid: true}
		if err := store.UpdateBooking(ctx, b); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		return b
	}

	past := confirm("2026-09-09", "10:00", "11:00")
	endedToday := confirm("2026-09-10", "08:00", "09:00")
	inProgress := confirm("2026-09-10", "11:30", "13:00")
	future := confirm("2026-09-11", "10:00", "11:00")

	// Still PENDING bookings never complete.
	pending := newBooking(court.ID, userID, "2026-09-09", "12:00", "13:00")
	if err := store.CreateIfFree(ctx, pending); err != nil {
		t.Fatalf("insert pending: %v", err)
	}

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.Local)
	n, err := store.CompleteElapsed(ctx, now)
	if err != nil {
		t.Fatalf("complete elapsed: %v", err)
	}
	if n != 2 {
		t.Errorf("completed = %d, want 2", n)
	}

	wantStatus := map[int64]booking.Status{
		past.ID:       booking.StatusCompleted,
		endedToday.ID: booking.StatusCompleted,
		inProgress.ID: booking.StatusConfirmed,
		future.ID:     booking.StatusConfirmed,
		pending.ID:    booking.StatusPending,
	}
	for id, want := range wantStatus {
		got, err := store.GetBooking(ctx, id)
		if err != nil {
			t.Fatalf("get booking %d: %v", id, err)
		}
		if got.Status != want {
			t.Errorf("booking %d status = %s, want %s", id, got.Status, want)
		}
	}

	// The sweep is idempotent.
	n, err = store.CompleteElapsed(ctx, now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep completed = %d, want 0", n)
	}
}

func TestListBookingsFilter(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	other := testutil.SeedCourt(t, store, court.FacilityID, "06:00", "22:00")
	alice := testutil.SeedUser(t, store, "alice@example.com")
	bob := testutil.SeedUser(t, store, "bob@example.com")
	ctx := context.Background()

	inserts := []*booking.Booking{
		newBooking(court.ID, alice, "2026-09-10", "10:00", "11:00"),
		newBooking(court.ID, bob, "2026-09-10", "11:00", "12:00"),
		newBooking(other.ID, alice, "2026-09-11", "10:00", "11:00"),
	}
	for _, b := range inserts {
		if err := store.CreateIfFree(ctx, b); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	byUser, err := store.ListBookings(ctx, booking.BookingFilter{UserID: alice})
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("alice bookings = %d, want 2", len(byUser))
	}

	byCourtDate, err := store.ListBookings(ctx, booking.BookingFilter{CourtID: court.ID, Date: "2026-09-10"})
	if err != nil {
		t.Fatalf("list by court/date: %v", err)
	}
	if len(byCourtDate) != 2 {
		t.Errorf("court bookings = %d, want 2", len(byCourtDate))
	}
	if len(byCourtDate) == 2 && byCourtDate[0].StartTime > byCourtDate[1].StartTime {
		t.Error("bookings not ordered by start time")
	}
}

func TestGetBookingNotFound(t *testing.T) {
	store := testutil.NewTestStore(t)

	var nf *booking.NotFoundError
	_, err := store.GetBooking(context.Background(), 9999)
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := testutil.NewTestStore(t)
	court := seedCourt(t, store)
	userID := testutil.SeedUser(t, store, "a@example.com")
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := store.RunInTx(ctx, func(tx booking.Store) error {
		if err := tx.CreateIfFree(ctx, newBooking(court.ID, userID, "2026-09-10", "10:00", "11:00")); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}

	rows, err := store.ListActiveBookings(ctx, court.ID, "2026-09-10")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("bookings after rollback = %d, want 0", len(rows))
	}
}
