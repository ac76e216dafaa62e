package agent

import (
	"context"
	"sync"
)

// Action is a unit of executable business logic. Implementations must not
// reach into the server; everything they need arrives in params and actx,
// and everything they change leaves through Result.
type Action interface {
	// Name identifies the action within an agent's registered set.
	Name() string

	// Execute runs the action. actx carries the instruction context plus
	// a "state" key holding a snapshot of the agent state.
	Execute(ctx context.Context, params, actx map[string]any) (Result, error)
}

// Idempotent is implemented by actions that are safe to retry.
type Idempotent interface {
	Idempotent() bool
}

// Result is what a successful action returns: a patch merged into the
// agent state and optional directives.
type Result struct {
	State      map[string]any
	Directives []Directive
}

// ActionFunc is the signature of a function-backed action.
type ActionFunc func(ctx context.Context, params, actx map[string]any) (Result, error)

type funcAction struct {
	name string
	fn   ActionFunc
}

// NewAction wraps a function as a named Action.
func NewAction(name string, fn ActionFunc) Action {
	return &funcAction{name: name, fn: fn}
}

func (a *funcAction) Name() string { return a.name }

func (a *funcAction) Execute(ctx context.Context, params, actx map[string]any) (Result, error) {
	return a.fn(ctx, params, actx)
}

// ActionSet is an ordered set of actions keyed by name. Reads are safe
// from any goroutine; the owning server is the only writer.
type ActionSet struct {
	mu      sync.RWMutex
	order   []string
	actions map[string]Action
}

// NewActionSet creates a set containing the given actions.
func NewActionSet(actions ...Action) *ActionSet {
	s := &ActionSet{actions: make(map[string]Action)}
	s.Add(actions...)
	return s
}

// Add registers actions, ignoring nil values and names already present.
func (s *ActionSet) Add(actions ...Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range actions {
		if a == nil {
			continue
		}
		name := a.Name()
		if _, ok := s.actions[name]; ok {
			continue
		}
		s.actions[name] = a
		s.order = append(s.order, name)
	}
}

// Remove deregisters the named action. It reports whether it was present.
func (s *ActionSet) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actions[name]; !ok {
		return false
	}
	delete(s.actions, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether an action with the given name is registered.
func (s *ActionSet) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.actions[name]
	return ok
}

// Get returns the registered action with the given name.
func (s *ActionSet) Get(name string) (Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actions[name]
	return a, ok
}

// Names returns the registered names in registration order.
func (s *ActionSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// List returns the registered actions in registration order.
func (s *ActionSet) List() []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Action, 0, len(s.order))
	for _, n := range s.order {
		list = append(list, s.actions[n])
	}
	return list
}

// Len returns the number of registered actions.
func (s *ActionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
