// Package statemachine provides the statekit integration for the server lifecycle.
package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

// TransitionFunc observes a completed status change.
type TransitionFunc func(from, to agent.Status, reason string)

// Context carries the lifecycle position through the state machine.
type Context struct {
	Status       agent.Status
	OnTransition TransitionFunc
}

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	ToStatus agent.Status
	Reason   string
}

// State IDs as StateID type for statekit.
const (
	stateInitializing statekit.StateID = statekit.StateID(agent.StatusInitializing)
	stateIdle         statekit.StateID = statekit.StateID(agent.StatusIdle)
	stateRunning      statekit.StateID = statekit.StateID(agent.StatusRunning)
	stateError        statekit.StateID = statekit.StateID(agent.StatusError)
	stateStopped      statekit.StateID = statekit.StateID(agent.StatusStopped)
)

// NewLifecycleMachine creates the server lifecycle statechart.
func NewLifecycleMachine() (*statekit.MachineConfig[*Context], error) {
	return statekit.NewMachine[*Context]("server").
		WithInitial(stateInitializing).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("canTransition", guardCanTransition).
		State(stateInitializing).
			On("IDLE").Target(stateIdle).Guard("canTransition").Do("recordTransition").
			On("STOP").Target(stateStopped).Do("recordTransition").
			Done().
		State(stateIdle).
			On("RUN").Target(stateRunning).Guard("canTransition").Do("recordTransition").
			On("FAIL").Target(stateError).Guard("canTransition").Do("recordTransition").
			On("STOP").Target(stateStopped).Do("recordTransition").
			Done().
		State(stateRunning).
			On("IDLE").Target(stateIdle).Guard("canTransition").Do("recordTransition").
			On("FAIL").Target(stateError).Guard("canTransition").Do("recordTransition").
			On("STOP").Target(stateStopped).Do("recordTransition").
			Done().
		State(stateError).
			On("STOP").Target(stateStopped).Do("recordTransition").
			Done().
		State(stateStopped).
			Final().
			Done().
		Build()
}

// EventForTransition returns the event type that moves the machine to a status.
func EventForTransition(to agent.Status) statekit.EventType {
	switch to {
	case agent.StatusIdle:
		return "IDLE"
	case agent.StatusRunning:
		return "RUN"
	case agent.StatusError:
		return "FAIL"
	case agent.StatusStopped:
		return "STOP"
	default:
		return statekit.EventType(to)
	}
}

// guardCanTransition checks the move against the status transition table.
// Guards receive the context by value, which here is *Context.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil {
		return false
	}
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return false
	}
	return agent.CanTransition(ctx.Status, payload.ToStatus)
}

// recordTransition updates the context and notifies the observer.
// Actions receive a pointer to the context, here **Context.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	c := *ctx
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return
	}
	from := c.Status
	c.Status = payload.ToStatus
	if c.OnTransition != nil {
		c.OnTransition(from, payload.ToStatus, payload.Reason)
	}
}
