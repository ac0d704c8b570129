// Package timerange is the single source of clock-time parsing and
// half-open interval math for the booking core. Every overlap decision in
// the system goes through Range.Overlaps so that admission, cancellation,
// and blocking can never disagree about what "free" means.
package timerange

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMinDuration is the policy floor for a bookable range, in minutes.
const DefaultMinDuration = 15 * Minutes(1)

// Minutes is a minute-of-day offset in [0, 1440].
type Minutes int

const minutesPerDay = 24 * 60

// ParseClock converts an "HH:MM" string to a minute-of-day offset.
func ParseClock(value string) (Minutes, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, &ParseError{Value: value}
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, &ParseError{Value: value}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, &ParseError{Value: value}
	}
	return Minutes(hour*60 + minute), nil
}

// Clock renders a minute-of-day offset back to "HH:MM". The closing bound
// 1440 renders as "24:00".
func (m Minutes) Clock() string {
	if m == minutesPerDay {
		return "24:00"
	}
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// ParseError reports a clock string that is not a valid "HH:MM" value.
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid time %q, expected HH:MM", e.Value)
}

// Range is a half-open interval [Start, End) of minute-of-day offsets.
type Range struct {
	Start Minutes
	End   Minutes
}

// NewRange parses a start/end clock pair into a Range. It does not validate
// ordering; call Validate for that.
func NewRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: s, End: e}, nil
}

// Duration returns the length of the range in minutes.
func (r Range) Duration() Minutes {
	return r.End - r.Start
}

// Overlaps reports whether two half-open ranges intersect. Touching
// boundaries do not overlap: [09:00,10:00) and [10:00,11:00) are disjoint.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Contains reports whether r lies entirely within outer.
func (r Range) Contains(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Validate checks ordering and the minimum-duration policy.
func (r Range) Validate(minDuration Minutes) error {
	if r.End <= r.Start {
		return fmt.Errorf("end time %s must be after start time %s", r.End.Clock(), r.Start.Clock())
	}
	if r.Duration() < minDuration {
		return fmt.Errorf("range %s-%s is shorter than the %d minute minimum", r.Start.Clock(), r.End.Clock(), minDuration)
	}
	return nil
}

// String renders the range as "HH:MM-HH:MM".
func (r Range) String() string {
	return r.Start.Clock() + "-" + r.End.Clock()
}
