package agent

import (
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/thread"
)

// Agent is the unit of owned, schema-validated state driven by a server.
// ID never changes; State is replaced as a whole by the owning server.
type Agent struct {
	ID      string
	State   map[string]any
	Actions *ActionSet
	Status  Status
	Schema  Schema
	Thread  *thread.Thread
}

// New creates an agent in the initializing status.
func New(id string, state map[string]any, actions ...Action) *Agent {
	if state == nil {
		state = make(map[string]any)
	}
	return &Agent{
		ID:      id,
		State:   state,
		Actions: NewActionSet(actions...),
		Status:  StatusInitializing,
	}
}

// WithSchema sets the schema and returns the agent for chaining.
func (a *Agent) WithSchema(s Schema) *Agent {
	a.Schema = s
	return a
}

// WithThread attaches a thread and returns the agent for chaining.
func (a *Agent) WithThread(t *thread.Thread) *Agent {
	a.Thread = t
	return a
}

// Valid reports whether the agent has the minimum shape the runtime needs.
func (a *Agent) Valid() bool {
	return a != nil && a.ID != ""
}

// Clone returns a copy of the agent that shares no mutable structure with
// a. Action values are shared; the set holding them is not.
func (a *Agent) Clone() *Agent {
	c := &Agent{
		ID:     a.ID,
		State:  CloneState(a.State),
		Status: a.Status,
		Schema: a.Schema.Clone(),
	}
	if a.Actions != nil {
		c.Actions = NewActionSet(a.Actions.List()...)
	}
	if a.Thread != nil {
		c.Thread = a.Thread.Clone()
	}
	return c
}

// Factory builds an agent from an id and initial state. A module is a
// named factory registered with the runtime.
type Factory func(id string, initial map[string]any) (*Agent, error)

// Snapshot is a point-in-time copy of an agent that shares no mutable
// structure with the live agent.
type Snapshot struct {
	ID      string         `json:"id"`
	State   map[string]any `json:"state"`
	Actions []string       `json:"actions"`
	Status  Status         `json:"status"`
	Thread  []thread.Entry `json:"thread,omitempty"`
	TakenAt time.Time      `json:"taken_at"`
}

// Snapshot copies the agent.
func (a *Agent) Snapshot(at time.Time) Snapshot {
	s := Snapshot{
		ID:      a.ID,
		State:   CloneState(a.State),
		Status:  a.Status,
		TakenAt: at,
	}
	if s.State == nil {
		s.State = make(map[string]any)
	}
	if a.Actions != nil {
		s.Actions = a.Actions.Names()
	}
	if a.Thread != nil {
		s.Thread = a.Thread.Entries()
	}
	return s
}
