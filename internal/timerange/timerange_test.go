package timerange

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    Minutes
		wantErr bool
	}{
		{"00:00", 0, false},
		{"06:00", 360, false},
		{"23:59", 1439, false},
		{"09:30", 570, false},
		{" 10:15 ", 615, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:00", 0, true},
		{"09:5", 0, true},
		{"0900", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
		{"09:00:00", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error, got %d", tc.in, got)
				continue
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("ParseClock(%q): error type %T", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClockRoundTrip(t *testing.T) {
	for _, raw := range []string{"00:00", "06:00", "13:45", "23:59"} {
		m, err := ParseClock(raw)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", raw, err)
		}
		if m.Clock() != raw {
			t.Errorf("Clock() = %q, want %q", m.Clock(), raw)
		}
	}
	if Minutes(1440).Clock() != "24:00" {
		t.Errorf("closing bound renders as %q", Minutes(1440).Clock())
	}
}

func TestOverlaps(t *testing.T) {
	mk := func(start, end string) Range {
		r, err := NewRange(start, end)
		if err != nil {
			t.Fatalf("NewRange(%s, %s): %v", start, end, err)
		}
		return r
	}

	cases := []struct {
		a, b Range
		want bool
	}{
		{mk("10:00", "11:00"), mk("10:30", "11:30"), true},
		{mk("10:00", "11:00"), mk("09:30", "10:30"), true},
		{mk("10:00", "11:00"), mk("10:15", "10:45"), true},
		{mk("10:00", "11:00"), mk("09:00", "12:00"), true},
		{mk("10:00", "11:00"), mk("10:00", "11:00"), true},
		// Touching boundaries are not conflicts.
		{mk("10:00", "11:00"), mk("11:00", "12:00"), false},
		{mk("10:00", "11:00"), mk("09:00", "10:00"), false},
		{mk("10:00", "11:00"), mk("13:00", "14:00"), false},
	}

	for _, tc := range cases {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Errorf("%s overlaps %s = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		// Overlap is symmetric.
		if tc.a.Overlaps(tc.b) != tc.b.Overlaps(tc.a) {
			t.Errorf("overlap asymmetric for %s and %s", tc.a, tc.b)
		}
	}
}

func TestValidate(t *testing.T) {
	mk := func(start, end string) Range {
		r, err := NewRange(start, end)
		if err != nil {
			t.Fatalf("NewRange(%s, %s): %v", start, end, err)
		}
		return r
	}

	if err := mk("09:00", "10:00").Validate(DefaultMinDuration); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}
	if err := mk("09:00", "09:15").Validate(DefaultMinDuration); err != nil {
		t.Errorf("minimum-length range rejected: %v", err)
	}
	if err := mk("10:00", "09:00").Validate(DefaultMinDuration); err == nil {
		t.Error("inverted range accepted")
	}
	if err := mk("09:00", "09:00").Validate(DefaultMinDuration); err == nil {
		t.Error("empty range accepted")
	}
	if err := mk("09:00", "09:10").Validate(DefaultMinDuration); err == nil {
		t.Error("sub-minimum range accepted")
	}
}

func TestContains(t *testing.T) {
	outer, err := NewRange("06:00", "22:00")
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}

	inner, _ := NewRange("06:00", "07:00")
	if !outer.Contains(inner) {
		t.Error("opening slot should be within operating hours")
	}
	last, _ := NewRange("21:00", "22:00")
	if !outer.Contains(last) {
		t.Error("closing slot should be within operating hours")
	}
	early, _ := NewRange("05:30", "06:30")
	if outer.Contains(early) {
		t.Error("range starting before opening accepted")
	}
	late, _ := NewRange("21:30", "22:30")
	if outer.Contains(late) {
		t.Error("range ending after closing accepted")
	}
}
