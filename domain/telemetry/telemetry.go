// Package telemetry defines the fire-and-forget event emission contract
// used by the runtime.
package telemetry

import (
	"context"
	"strings"
	"time"
)

// Prefix is the first path segment of every runtime event.
const Prefix = "agent_runtime"

// Event names emitted by the runtime.
const (
	ServerStart       = Prefix + ".agent_server.start"
	ServerStop        = Prefix + ".agent_server.stop"
	ServerStatus      = Prefix + ".agent_server.status"
	ServerCrash       = Prefix + ".agent_server.crash"
	QueueOverflow     = Prefix + ".agent_server.queue_overflow"
	ChildExit         = Prefix + ".agent_server.child_exit"
	CheckpointFailed  = Prefix + ".agent_server.checkpoint_failed"
	SignalStart       = Prefix + ".signal.start"
	SignalStop        = Prefix + ".signal.stop"
	RoutingError      = Prefix + ".signal.routing_error"
	InstructionStart  = Prefix + ".instruction.start"
	InstructionStop   = Prefix + ".instruction.stop"
	InstructionFailed = Prefix + ".instruction.error"
)

// Metadata keys.
const (
	MetaInstanceID    = "instance_id"
	MetaAgentID       = "agent_id"
	MetaCorrelationID = "correlation_id"
	MetaSignalType    = "signal_type"
	MetaAction        = "action"
	MetaInstructionID = "instruction_id"
	MetaStatus        = "status"
	MetaError         = "error"
	MetaChildID       = "child_id"
	MetaReason        = "reason"
)

// Measurement keys.
const (
	MeasureDuration     = "duration_ms"
	MeasureInstructions = "instructions"
	MeasureQueueLength  = "queue_length"
	MeasureErrors       = "errors"
)

// Event is a single emitted observation.
type Event struct {
	Name         string
	Measurements map[string]float64
	Metadata     map[string]any
	At           time.Time
}

// Path returns the event name split into segments.
func (e Event) Path() []string {
	return strings.Split(e.Name, ".")
}

// Str returns a metadata value as a string, or "".
func (e Event) Str(key string) string {
	s, _ := e.Metadata[key].(string)
	return s
}

// Emitter receives runtime events. Implementations must not block for
// long and must never influence the caller's control flow.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Func adapts a function to the Emitter interface.
type Func func(ctx context.Context, event Event)

// Emit implements Emitter.
func (f Func) Emit(ctx context.Context, event Event) { f(ctx, event) }

// Noop discards every event.
type Noop struct{}

// Emit implements Emitter.
func (Noop) Emit(context.Context, Event) {}

// Multi fans an event out to several emitters.
type Multi []Emitter

// Emit implements Emitter. A panicking emitter does not stop the others.
func (m Multi) Emit(ctx context.Context, event Event) {
	for _, e := range m {
		Safe(ctx, e, event)
	}
}

// Safe emits event and swallows any panic raised by the emitter.
func Safe(ctx context.Context, e Emitter, event Event) {
	if e == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	e.Emit(ctx, event)
}

var (
	_ Emitter = Noop{}
	_ Emitter = Multi(nil)
	_ Emitter = Func(nil)
)
