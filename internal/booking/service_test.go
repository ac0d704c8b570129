package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/payments"
	"github.com/codr1/Courtside/internal/testutil"
)

type refundCall struct {
	chargeRef   string
	amountCents int64
}

type fakeGateway struct {
	mu        sync.Mutex
	charges   int
	refunds   []refundCall
	chargeErr error
	refundErr error
}

func (g *fakeGateway) CreateCharge(ctx context.Context, amountCents int64, metadata map[string]interface{}) (*payments.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	g.charges++
	return &payments.Charge{Ref: fmt.Sprintf("chrg_test_%d", g.charges), AmountCents: amountCents}, nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, chargeRef string, amountCents int64, reason string) (*payments.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, refundCall{chargeRef: chargeRef, amountCents: amountCents})
	return &payments.RefundResult{Ref: fmt.Sprintf("rfnd_test_%d", len(g.refunds))}, nil
}

func (g *fakeGateway) VerifyEvent(ctx context.Context, eventID string) (*payments.Event, error) {
	return nil, payments.ErrUnhandledEvent
}

func newTestService(t *testing.T, gw payments.Gateway, clock clockwork.Clock) (*booking.Service, booking.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)
	svc := booking.NewService(booking.ServiceConfig{
		Store:   store,
		Gateway: gw,
		Clock:   clock,
	})
	return svc, store
}

func seedCourtAndUser(t *testing.T, store booking.Store) (*booking.Court, int64) {
	t.Helper()
	facilityID := testutil.SeedFacility(t, store)
	court := testutil.SeedCourt(t, store, facilityID, "06:00", "22:00")
	userID := testutil.SeedUser(t, store, "member@example.com")
	return court, userID
}

func TestCreateAdmitsAndPrices(t *testing.T) {
	gw := &fakeGateway{}
	svc, store := newTestService(t, gw, nil)
	court, userID := seedCourtAndUser(t, store)

	b, payment, err := svc.Create(context.Background(), booking.CreateRequest{
		CourtID:   court.ID,
		UserID:    userID,
		Date:      "2026-09-10",
		StartTime: "10:00",
		EndTime:   "11:30",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != booking.StatusPending {
		t.Errorf("status = %s, want PENDING", b.Status)
	}
	// 90 minutes at $25.00/hour.
	if b.AmountCents != 3750 {
		t.Errorf("amount = %d, want 3750", b.AmountCents)
	}
	if payment == nil {
		t.Fatal("expected a payment order")
	}
	if payment.Status != booking.PaymentPending {
		t.Errorf("payment status = %s, want PENDING", payment.Status)
	}
	if gw.charges != 1 {
		t.Errorf("gateway charges = %d, want 1", gw.charges)
	}
}

func TestCreateRejectsOutsideOperatingHours(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	court, userID := seedCourtAndUser(t, store)

	_, _, err := svc.Create(context.Background(), booking.CreateRequest{
		CourtID:   court.ID,
		UserID:    userID,
		Date:      "2026-09-10",
		StartTime: "21:30",
		EndTime:   "22:30",
	})
	var verr *booking.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCreateRejectsMalformedDate(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	court, userID := seedCourtAndUser(t, store)

	// Unpadded dates must not slip through and key a different lexical
	// (court, date) availability set than the canonical form.
	for _, date := range []string{"2026-9-1", "09/10/2026", "not-a-date"} {
		_, _, err := svc.Create(context.Background(), booking.CreateRequest{
			CourtID:   court.ID,
			UserID:    userID,
			Date:      date,
			StartTime: "10:00",
			EndTime:   "11:00",
		})
		var verr *booking.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("date %q: err = %v, want ValidationError", date, err)
		}
	}
}

func TestCreateRejectsUnapprovedFacility(t *testing.T) {
	svc, store := newTestService(t, nil, nil)

	facility := &booking.Facility{Name: "New Venue", OwnerID: 1, Status: booking.FacilityPending, Timezone: "UTC"}
	if err := store.CreateFacility(context.Background(), facility); err != nil {
		t.Fatalf("seed facility: %v", err)
	}
	court := testutil.SeedCourt(t, store, facility.ID, "06:00", "22:00")
	userID := testutil.SeedUser(t, store, "member@example.com")

	_, _, err := svc.Create(context.Background(), booking.CreateRequest{
		CourtID:   court.ID,
		UserID:    userID,
		Date:      "2026-09-10",
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	var perr *booking.PolicyError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PolicyError", err)
	}
}

func TestCreateOverlapConflict(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	court, userID := seedCourtAndUser(t, store)

	mk := func(start, end string) error {
		_, _, err := svc.Create(context.Background(), booking.CreateRequest{
			CourtID:   court.ID,
			UserID:    userID,
			Date:      "2026-09-10",
			StartTime: start,
			EndTime:   end,
		})
		return err
	}

	if err := mk("10:00", "11:00"); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	var cerr *booking.ConflictError
	if err := mk("10:30", "11:30"); !errors.As(err, &cerr) {
		t.Fatalf("overlapping booking err = %v, want ConflictError", err)
	}
	if err := mk("09:00", "10:30"); !errors.As(err, &cerr) {
		t.Fatalf("overlapping booking err = %v, want ConflictError", err)
	}

	// Touching boundaries share an instant but not a slot.
	if err := mk("11:00", "12:00"); err != nil {
		t.Fatalf("back-to-back booking: %v", err)
	}
	if err := mk("09:00", "10:00"); err != nil {
		t.Fatalf("preceding booking: %v", err)
	}
}

func TestConcurrentAdmissionSingleWinner(t *testing.T) {
	svc, store := newTestService(t, nil, nil)
	court, userID := seedCourtAndUser(t, store)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Create(context.Background(), booking.CreateRequest{
				CourtID:   court.ID,
				UserID:    userID,
				Date:      "2026-09-11",
				StartTime: "14:00",
				EndTime:   "15:00",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		default:
			var cerr *booking.ConflictError
			if !errors.As(err, &cerr) {
				t.Errorf("loser err = %v, want ConflictError", err)
			}
			lost++
		}
	}
	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}
	if lost != attempts-1 {
		t.Errorf("losers = %d, want %d", lost, attempts-1)
	}
}

// createConfirmed books a slot and walks the payment to COMPLETED, as a paid
// webhook would.
func createConfirmed(t *testing.T, svc *booking.Service, store booking.Store, courtID, userID int64, date, start, end string) *booking.Booking {
	t.Helper()
	ctx := context.Background()

	_, payment, err := svc.Create(ctx, booking.CreateRequest{
		CourtID:   courtID,
		UserID:    userID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if payment == nil {
		t.Fatal("expected a payment order")
	}
	confirmed, err := svc.HandlePaymentEvent(ctx, &payments.Event{ChargeRef: payment.ProviderRef, Paid: true})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return confirmed
}

func mustStartAt(t *testing.T, date, start string) time.Time {
	t.Helper()
	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+start, time.Local)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	return at
}

func TestCancelRefundTiers(t *testing.T) {
	tests := []struct {
		name        string
		notice      time.Duration
		wantRefund  int64
		wantPct     int64
		wantPayment string
	}{
		{"full refund at 24h notice", 24 * time.Hour, 3750, 100, booking.PaymentRefunded},
		{"full refund above 24h", 72 * time.Hour, 3750, 100, booking.PaymentRefunded},
		{"half refund between 12h and 24h", 18 * time.Hour, 1875, 50, booking.PaymentRefunded},
		{"half refund at exactly 12h", 12 * time.Hour, 1875, 50, booking.PaymentRefunded},
		{"no refund under 12h", 3 * time.Hour, 0, 0, booking.PaymentCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := mustStartAt(t, "2026-09-10", "10:00")
			clock := clockwork.NewFakeClockAt(start.Add(-tt.notice))
			gw := &fakeGateway{}
			svc, store := newTestService(t, gw, clock)
			court, userID := seedCourtAndUser(t, store)

			b := createConfirmed(t, svc, store, court.ID, userID, "2026-09-10", "10:00", "11:30")

			cancelled, refund, err := svc.Cancel(context.Background(), b.ID, "change of plans")
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if cancelled.Status != booking.StatusCancelled {
				t.Errorf("status = %s, want CANCELLED", cancelled.Status)
			}

			if tt.wantRefund == 0 {
				if refund != nil {
					t.Fatalf("refund = %+v, want none", refund)
				}
				if len(gw.refunds) != 0 {
					t.Errorf("gateway refunds = %d, want 0", len(gw.refunds))
				}
			} else {
				if refund == nil {
					t.Fatal("expected a refund")
				}
				if refund.AmountCents != tt.wantRefund {
					t.Errorf("refund amount = %d, want %d", refund.AmountCents, tt.wantRefund)
				}
				if refund.Percentage != tt.wantPct {
					t.Errorf("refund percentage = %d, want %d", refund.Percentage, tt.wantPct)
				}
				if refund.Status != booking.RefundCompleted {
					t.Errorf("refund status = %s, want COMPLETED", refund.Status)
				}
			}

			payment, err := store.GetPaymentByBooking(context.Background(), b.ID)
			if err != nil {
				t.Fatalf("load payment: %v", err)
			}
			if payment.Status != tt.wantPayment {
				t.Errorf("payment status = %s, want %s", payment.Status, tt.wantPayment)
			}
		})
	}
}

func TestCancelAfterStartRejected(t *testing.T) {
	start := mustStartAt(t, "2026-09-10", "10:00")
	clock := clockwork.NewFakeClockAt(start.Add(-48 * time.Hour))
	gw := &fakeGateway{}
	svc, store := newTestService(t, gw, clock)
	court, userID := seedCourtAndUser(t, store)

	b := createConfirmed(t, svc, store, court.ID, userID, "2026-09-10", "10:00", "11:00")

	clock.Advance(49 * time.Hour)
	_, _, err := svc.Cancel(context.Background(), b.ID, "")
	var perr *booking.PolicyError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PolicyError", err)
	}
}

func TestCancelTwiceRejected(t *testing.T) {
	start := mustStartAt(t, "2026-09-10", "10:00")
	clock := clockwork.NewFakeClockAt(start.Add(-48 * time.Hour))
	svc, store := newTestService(t, &fakeGateway{}, clock)
	court, userID := seedCourtAndUser(t, store)

	b := createConfirmed(t, svc, store, court.ID, userID, "2026-09-10", "10:00", "11:00")
	if _, _, err := svc.Cancel(context.Background(), b.ID, ""); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	_, _, err := svc.Cancel(context.Background(), b.ID, "")
	var perr *booking.PolicyError
	if !errors.As(err, &perr) {
		t.Fatalf("second cancel err = %v, want PolicyError", err)
	}
}

func TestCancelGatewayFailureLeavesBookingUntouched(t *testing.T) {
	start := mustStartAt(t, "2026-09-10", "10:00")
	clock := clockwork.NewFakeClockAt(start.Add(-48 * time.Hour))
	gw := &fakeGateway{}
	svc, store := newTestService(t, gw, clock)
	court, userID := seedCourtAndUser(t, store)

	b := createConfirmed(t, svc, store, court.ID, userID, "2026-09-10", "10:00", "11:00")

	gw.refundErr = errors.New("provider timeout")
	_, _, err := svc.Cancel(context.Background(), b.ID, "")
	var gerr *booking.GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("err = %v, want GatewayError", err)
	}

	reloaded, err := store.GetBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != booking.StatusConfirmed {
		t.Errorf("status after failed refund = %s, want CONFIRMED", reloaded.Status)
	}
}

func TestHandlePaymentEventConfirms(t *testing.T) {
	gw := &fakeGateway{}
	svc, store := newTestService(t, gw, nil)
	court, userID := seedCourtAndUser(t, store)

	b, payment, err := svc.Create(context.Background(), booking.CreateRequest{
		CourtID:   court.ID,
		UserID:    userID,
		Date:      "2026-09-10",
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	confirmed, err := svc.HandlePaymentEvent(context.Background(), &payments.Event{ChargeRef: payment.ProviderRef, Paid: true})
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if confirmed.Status != booking.StatusConfirmed {
		t.Errorf("status = %s, want CONFIRMED", confirmed.Status)
	}
	if !confirmed.ConfirmedAt.Valid {
		t.Error("confirmed_at not set")
	}

	// Redelivery of the same paid event is a no-op.
	again, err := svc.HandlePaymentEvent(context.Background(), &payments.Event{ChargeRef: payment.ProviderRef, Paid: true})
	if err != nil {
		t.Fatalf("redelivered event: %v", err)
	}
	if again.Status != booking.StatusConfirmed {
		t.Errorf("status after redelivery = %s, want CONFIRMED", again.Status)
	}

	stored, err := store.GetPaymentByBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if stored.Status != booking.PaymentCompleted {
		t.Errorf("payment status = %s, want COMPLETED", stored.Status)
	}
}

func TestHandlePaymentEventFailureKeepsBookingPending(t *testing.T) {
	gw := &fakeGateway{}
	svc, store := newTestService(t, gw, nil)
	court, userID := seedCourtAndUser(t, store)

	b, payment, err := svc.Create(context.Background(), booking.CreateRequest{
		CourtID:   court.ID,
		UserID:    userID,
		Date:      "2026-09-10",
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.HandlePaymentEvent(context.Background(), &payments.Event{
		ChargeRef:     payment.ProviderRef,
		Paid:          false,
		FailureReason: "insufficient funds",
	})
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if got.Status != booking.StatusPending {
		t.Errorf("status = %s, want PENDING", got.Status)
	}

	stored, err := store.GetPaymentByBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if stored.Status != booking.PaymentFailed {
		t.Errorf("payment status = %s, want FAILED", stored.Status)
	}
}
