package booking

// Status is a booking lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// transitions enumerates every legal lifecycle edge. There is no direct
// PENDING -> COMPLETED edge; a booking must be confirmed first.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCancelled: true,
		StatusCompleted: true,
	},
	StatusCancelled: {},
	StatusCompleted: {},
}

// Terminal reports whether no transitions leave the state.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Active reports whether the booking still occupies its slot. Only PENDING
// and CONFIRMED bookings participate in conflict detection.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether the edge s -> to is legal.
func (s Status) CanTransitionTo(to Status) bool {
	return transitions[s][to]
}

// Transition moves the booking to the target status, failing with a
// StateError on any illegal edge. Attempts from terminal states are always
// reported, never silently ignored.
func (b *Booking) Transition(to Status) error {
	if !b.Status.CanTransitionTo(to) {
		return &StateError{From: b.Status, To: to}
	}
	b.Status = to
	return nil
}
