package statemachine

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

// Lifecycle drives a server's status through the statechart.
type Lifecycle struct {
	mu     sync.Mutex
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewLifecycle builds and starts a lifecycle in the initializing status.
func NewLifecycle(onTransition TransitionFunc) (*Lifecycle, error) {
	machine, err := NewLifecycleMachine()
	if err != nil {
		return nil, fmt.Errorf("build lifecycle machine: %w", err)
	}

	ctx := &Context{
		Status:       agent.StatusInitializing,
		OnTransition: onTransition,
	}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	interp.Start()

	return &Lifecycle{interp: interp, ctx: ctx}, nil
}

// Status returns the current status.
func (l *Lifecycle) Status() agent.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return agent.Status(l.interp.State().Value)
}

// CanTransition reports whether moving to the target status is legal.
func (l *Lifecycle) CanTransition(to agent.Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return agent.CanTransition(l.ctx.Status, to)
}

// Transition moves to the target status. A move to the current status is a no-op.
func (l *Lifecycle) Transition(to agent.Status, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from := l.ctx.Status
	if from == to {
		return nil
	}
	if !agent.CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", agent.ErrIllegalTransition, from, to)
	}

	l.interp.Send(statekit.Event{
		Type:    EventForTransition(to),
		Payload: TransitionPayload{ToStatus: to, Reason: reason},
	})

	if got := agent.Status(l.interp.State().Value); got != to {
		return fmt.Errorf("%w: machine at %s after move to %s", agent.ErrIllegalTransition, got, to)
	}
	return nil
}

// IsTerminal returns true once the lifecycle reached stopped.
func (l *Lifecycle) IsTerminal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interp.Done()
}

// Stop releases the interpreter.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.interp.Stop()
}
