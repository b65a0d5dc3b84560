package session

import "fmt"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusRunning        Status = "running"
	StatusCompleted      Status = "completed"
	StatusPartialSuccess Status = "partial_success"
	StatusError          Status = "error"
)

// ParseStatus converts a wire string into a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusIdle, StatusRunning, StatusCompleted, StatusPartialSuccess, StatusError:
		return Status(value), nil
	default:
		return "", fmt.Errorf("unknown session status %q", value)
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartialSuccess, StatusError:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
