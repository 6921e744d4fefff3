package scheduling

import "strings"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// transitions lists the states reachable from each state. Completed has no
// exits: an invoice exists once an appointment gets there.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusConfirmed: {StatusPending, StatusCompleted, StatusCancelled},
	StatusCancelled: {StatusPending},
	StatusCompleted: nil,
}

// ParseStatus matches s against the known states, ignoring case and
// surrounding space, and returns the canonical spelling.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for st := range transitions {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// CanTransition reports whether an appointment in state s may move to next.
// Staying in the same state is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
