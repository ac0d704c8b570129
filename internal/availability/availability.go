// Package availability materializes the bookable slot grid for a court and
// date and annotates it against bookings, maintenance blocks, and the clock.
package availability

import (
	"fmt"
	"time"

	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/timerange"
)

// DefaultGranularity is the slot width used for the public grid.
const DefaultGranularity = timerange.Minutes(60)

// SlotStatus is the single canonical status of a slot. When several apply,
// precedence is past > booked > blocked > available.
type SlotStatus string

const (
	StatusAvailable SlotStatus = "available"
	StatusPast      SlotStatus = "past"
	StatusBooked    SlotStatus = "booked"
	StatusBlocked   SlotStatus = "blocked"
)

// Slot is one annotated grid cell.
type Slot struct {
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Status    SlotStatus `json:"status"`
}

// ConfigurationError reports operating hours or granularity that cannot
// produce a grid.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// GenerateSlots covers [opening, closing) with contiguous slots of the given
// granularity, ascending, no gaps or overlaps. A trailing remainder shorter
// than the granularity becomes a final short slot so the union always equals
// the operating window.
func GenerateSlots(opening, closing, granularity timerange.Minutes) ([]timerange.Range, error) {
	if closing <= opening {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("closing time %s must be after opening time %s", closing.Clock(), opening.Clock()),
		}
	}
	if granularity <= 0 {
		return nil, &ConfigurationError{Reason: "slot granularity must be positive"}
	}

	slots := make([]timerange.Range, 0, int((closing-opening)/granularity)+1)
	for start := opening; start < closing; start += granularity {
		end := start + granularity
		if end > closing {
			end = closing
		}
		slots = append(slots, timerange.Range{Start: start, End: end})
	}
	return slots, nil
}

// Annotate assigns each slot its canonical status for the given date. The
// "past" check only applies when the requested date is today, matching the
// observed calendar behavior; past wins over booked, booked over blocked.
func Annotate(date string, slots []timerange.Range, bookings []booking.Booking, blocks []booking.TimeSlot, now time.Time) []Slot {
	today := now.Format(booking.DateLayout)
	nowMinute := timerange.Minutes(now.Hour()*60 + now.Minute())

	bookedRanges := make([]timerange.Range, 0, len(bookings))
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		if rng, err := b.Range(); err == nil {
			bookedRanges = append(bookedRanges, rng)
		}
	}
	blockedRanges := make([]timerange.Range, 0, len(blocks))
	for _, s := range blocks {
		if !s.IsBlocked {
			continue
		}
		if rng, err := s.Range(); err == nil {
			blockedRanges = append(blockedRanges, rng)
		}
	}

	annotated := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		status := StatusAvailable
		switch {
		case date == today && slot.Start <= nowMinute:
			status = StatusPast
		case overlapsAny(slot, bookedRanges):
			status = StatusBooked
		case overlapsAny(slot, blockedRanges):
			status = StatusBlocked
		}
		annotated = append(annotated, Slot{
			StartTime: slot.Start.Clock(),
			EndTime:   slot.End.Clock(),
			Status:    status,
		})
	}
	return annotated
}

func overlapsAny(slot timerange.Range, ranges []timerange.Range) bool {
	for _, rng := range ranges {
		if slot.Overlaps(rng) {
			return true
		}
	}
	return false
}
