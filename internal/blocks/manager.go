// Package blocks lets facility owners mark court time ranges unavailable
// for maintenance, optionally overriding existing bookings.
package blocks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/timerange"
)

// BlockedSlot records one (date, range) that is now blocked.
type BlockedSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Conflict records a (date, range) that could not be blocked because active
// bookings overlap it and override was not allowed.
type Conflict struct {
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	BookingIDs []int64 `json:"booking_ids"`
}

// Result reports what a block request actually did; callers must inspect
// Conflicts rather than assume every pair was blocked.
type Result struct {
	Blocked   []BlockedSlot `json:"blocked"`
	Conflicts []Conflict    `json:"conflicts"`
}

// Manager owns maintenance blocking and unblocking. It shares the booking
// service's per-(court,date) locks so a block cannot interleave with a
// concurrent admission.
type Manager struct {
	store     booking.Store
	svc       *booking.Service
	publisher *events.Publisher
}

func NewManager(store booking.Store, svc *booking.Service, publisher *events.Publisher) *Manager {
	return &Manager{store: store, svc: svc, publisher: publisher}
}

// Block marks every (date, range) pair blocked. Pairs overlapped by active
// bookings are reported as conflicts unless allowOverride is set, in which
// case the bookings are cancelled with a full refund first. Blocking an
// already-blocked slot updates its reason.
func (m *Manager) Block(ctx context.Context, courtID int64, dates []string, ranges []timerange.Range, reason string, allowOverride bool) (*Result, error) {
	if _, err := m.store.GetCourt(ctx, courtID); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, date := range dates {
		unlock := m.svc.Locks().Lock(booking.AvailabilityKey(courtID, date))
		err := m.blockDate(ctx, courtID, date, ranges, reason, allowOverride, result)
		unlock()
		if err != nil {
			return nil, err
		}
	}

	if len(result.Blocked) > 0 {
		if err := m.publisher.PublishJSON(ctx, events.KeySlotsBlocked, map[string]any{
			"court_id": courtID,
			"blocked":  result.Blocked,
			"reason":   reason,
		}); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to publish block event")
		}
	}
	return result, nil
}

func (m *Manager) blockDate(ctx context.Context, courtID int64, date string, ranges []timerange.Range, reason string, allowOverride bool, result *Result) error {
	active, err := m.store.ListActiveBookings(ctx, courtID, date)
	if err != nil {
		return fmt.Errorf("list bookings for court %d on %s: %w", courtID, date, err)
	}

	for _, rng := range ranges {
		overlapping := overlappingBookings(active, rng)

		if len(overlapping) > 0 && !allowOverride {
			conflict := Conflict{Date: date, StartTime: rng.Start.Clock(), EndTime: rng.End.Clock()}
			for _, i := range overlapping {
				conflict.BookingIDs = append(conflict.BookingIDs, active[i].ID)
			}
			result.Conflicts = append(result.Conflicts, conflict)
			continue
		}

		if allowOverride {
			// Cancel through the shared slice so a booking spanning two
			// requested ranges is only cancelled once.
			for _, i := range overlapping {
				if _, err := m.svc.CancelForMaintenance(ctx, &active[i], maintenanceReason(reason)); err != nil {
					return fmt.Errorf("cancel booking %d for maintenance: %w", active[i].ID, err)
				}
			}
		}

		slot := &booking.TimeSlot{
			CourtID:     courtID,
			Date:        date,
			StartTime:   rng.Start.Clock(),
			EndTime:     rng.End.Clock(),
			IsBlocked:   true,
			BlockReason: sql.NullString{String: reason, Valid: reason != ""},
		}
		if err := m.store.UpsertBlockedSlot(ctx, slot); err != nil {
			return fmt.Errorf("block court %d on %s %s: %w", courtID, date, rng, err)
		}
		result.Blocked = append(result.Blocked, BlockedSlot{
			Date:      date,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
		})
	}
	return nil
}

// Unblock clears the blocked flag on matching slots and returns how many
// changed. An empty ranges slice means every blocked slot on the given
// dates. Unblocking a never-blocked slot is a no-op, not an error, and
// cancelled bookings stay cancelled.
func (m *Manager) Unblock(ctx context.Context, courtID int64, dates []string, ranges []timerange.Range) (int64, error) {
	if _, err := m.store.GetCourt(ctx, courtID); err != nil {
		return 0, err
	}

	var count int64
	for _, date := range dates {
		dateRanges := ranges
		if len(dateRanges) == 0 {
			blocked, err := m.store.ListBlockedSlots(ctx, courtID, date)
			if err != nil {
				return count, err
			}
			for _, slot := range blocked {
				rng, err := slot.Range()
				if err != nil {
					continue
				}
				dateRanges = append(dateRanges, rng)
			}
			if len(dateRanges) == 0 {
				continue
			}
		}
		n, err := m.store.UnblockSlots(ctx, courtID, []string{date}, dateRanges)
		if err != nil {
			return count, err
		}
		count += n
	}

	if count > 0 {
		if err := m.publisher.PublishJSON(ctx, events.KeySlotsUnblocked, map[string]any{
			"court_id": courtID,
			"count":    count,
		}); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to publish unblock event")
		}
	}
	return count, nil
}

// overlappingBookings returns indices into active whose slot overlaps rng,
// skipping bookings already cancelled earlier in the same request.
func overlappingBookings(active []booking.Booking, rng timerange.Range) []int {
	var out []int
	for i := range active {
		if !active[i].Status.Active() {
			continue
		}
		bookedRange, err := active[i].Range()
		if err != nil {
			continue
		}
		if bookedRange.Overlaps(rng) {
			out = append(out, i)
		}
	}
	return out
}

func maintenanceReason(reason string) string {
	if reason == "" {
		return "court maintenance"
	}
	return "court maintenance: " + reason
}
