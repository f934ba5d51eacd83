package clinic

import "fmt"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus int

const (
	StatusScheduled AppointmentStatus = iota + 1
	StatusCompleted
	StatusCancelled
)

var statusNames = map[AppointmentStatus]string{
	StatusScheduled: "Scheduled",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
}

func (s AppointmentStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AppointmentStatus(%d)", int(s))
}

// Terminal reports whether no transition can leave s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s AppointmentStatus) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown appointment status %d", int(s))
	}
	return []byte(name), nil
}

func (s *AppointmentStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus maps "Scheduled", "Completed" or "Cancelled" to a status.
func ParseStatus(name string) (AppointmentStatus, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown appointment status %q", name)
}

// Action is a lifecycle operation requested on an appointment.
type Action int

const (
	ActionCancel Action = iota + 1
	ActionComplete
)

func (a Action) String() string {
	switch a {
	case ActionCancel:
		return "cancel"
	case ActionComplete:
		return "complete"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Transition returns the status reached by applying action to current.
// Repeating the action that produced a terminal status is a no-op; crossing
// from one terminal status to the other is an ErrInvalidTransition.
func Transition(current AppointmentStatus, action Action) (AppointmentStatus, error) {
	switch action {
	case ActionCancel:
		switch current {
		case StatusScheduled, StatusCancelled:
			return StatusCancelled, nil
		case StatusCompleted:
			return current, invalidTransition("Cannot cancel a completed appointment")
		}
	case ActionComplete:
		switch current {
		case StatusScheduled, StatusCompleted:
			return StatusCompleted, nil
		case StatusCancelled:
			return current, invalidTransition("Cannot complete a cancelled appointment")
		}
	default:
		return current, invalidTransition(fmt.Sprintf("Unknown appointment action %s", action))
	}
	return current, invalidTransition(fmt.Sprintf("Cannot %s an appointment in status %s", action, current))
}
