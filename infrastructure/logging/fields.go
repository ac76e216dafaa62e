package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for agent runtime logging.

// AgentID adds an agent ID field.
func AgentID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("agent_id", id)
	}
}

// InstanceID adds the runtime instance ID.
func InstanceID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("instance_id", id)
	}
}

// CorrelationID adds a correlation ID field.
func CorrelationID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		if id == "" {
			return e
		}
		return e.Str("correlation_id", id)
	}
}

// SignalType adds a signal type field.
func SignalType(typ string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("signal_type", typ)
	}
}

// Action adds an action name field.
func Action(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", name)
	}
}

// InstructionID adds an instruction ID field.
func InstructionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("instruction_id", id)
	}
}

// Status adds a status field.
func Status(s agent.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s agent.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", string(s))
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s agent.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", string(s))
	}
}

// ChildID adds a child agent ID field.
func ChildID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("child_id", id)
	}
}

// QueueLength adds a queue length field.
func QueueLength(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("queue_length", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an int field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
