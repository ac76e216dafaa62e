// Package agent provides the core domain model for the agent runtime.
package agent

// Status is the lifecycle position of an agent server.
type Status string

const (
	StatusInitializing Status = "initializing" // Constructing and validating
	StatusIdle         Status = "idle"         // Waiting for work
	StatusRunning      Status = "running"      // Draining the queue
	StatusError        Status = "error"        // Unrecovered failure
	StatusStopped      Status = "stopped"      // Terminal
)

// transitions lists the legal forward moves. Stopped is reachable from
// every other status and handled separately in CanTransition.
var transitions = map[Status][]Status{
	StatusInitializing: {StatusIdle},
	StatusIdle:         {StatusRunning, StatusError},
	StatusRunning:      {StatusIdle, StatusError},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	if to == StatusStopped {
		return from != StatusStopped && from.IsValid()
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s.
func AllowedTransitions(s Status) []Status {
	if s == StatusStopped || !s.IsValid() {
		return nil
	}
	allowed := append([]Status(nil), transitions[s]...)
	return append(allowed, StatusStopped)
}

// IsTerminal returns true for the stopped status.
func (s Status) IsTerminal() bool {
	return s == StatusStopped
}

// IsValid returns true if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusInitializing, StatusIdle, StatusRunning, StatusError, StatusStopped:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns every status.
func AllStatuses() []Status {
	return []Status{
		StatusInitializing,
		StatusIdle,
		StatusRunning,
		StatusError,
		StatusStopped,
	}
}
