package agent

// DirectiveKind names a directive variant.
type DirectiveKind string

const (
	KindSetState         DirectiveKind = "set_state"
	KindReplaceState     DirectiveKind = "replace_state"
	KindDeleteKeys       DirectiveKind = "delete_keys"
	KindSetPath          DirectiveKind = "set_path"
	KindDeletePath       DirectiveKind = "delete_path"
	KindEnqueueAction    DirectiveKind = "enqueue_action"
	KindRegisterAction   DirectiveKind = "register_action"
	KindDeregisterAction DirectiveKind = "deregister_action"
	KindSpawn            DirectiveKind = "spawn"
	KindKill             DirectiveKind = "kill"
	KindAddRoute         DirectiveKind = "add_route"
	KindRemoveRoute      DirectiveKind = "remove_route"
	KindError            DirectiveKind = "error"
)

// Directive is a typed result of executing an instruction. The set of
// variants is closed.
type Directive interface {
	Kind() DirectiveKind
	directive()
}

// SetState shallow-merges Patch into the agent state.
type SetState struct {
	Patch map[string]any
}

// ReplaceState replaces the agent state wholesale.
type ReplaceState struct {
	State map[string]any
}

// DeleteKeys removes top-level keys from the agent state.
type DeleteKeys struct {
	Keys []string
}

// SetPath sets a nested value, creating intermediate maps.
type SetPath struct {
	Path  []string
	Value any
}

// DeletePath removes a nested value; absent paths are ignored.
type DeletePath struct {
	Path []string
}

// EnqueueAction queues a new instruction on the same agent.
type EnqueueAction struct {
	Action  Action
	Params  map[string]any
	Context map[string]any
}

// RegisterAction adds an action to the agent's registered set.
type RegisterAction struct {
	Action Action
}

// DeregisterAction removes an action from the agent's registered set.
// Source is the name of the action that emitted the directive and is
// filled in by the execution strategy.
type DeregisterAction struct {
	Action Action
	Source string
}

// Spawn starts a child agent from a registered module.
type Spawn struct {
	Module string
	Args   map[string]any
}

// Kill stops a child agent.
type Kill struct {
	ID string
}

// AddRoute appends a route to the agent's route table. Target is the
// instruction template produced when the route matches.
type AddRoute struct {
	Path   string
	Target Instruction
}

// RemoveRoute deletes routes with the exact path.
type RemoveRoute struct {
	Path string
}

// Error reports an instruction failure without crashing the agent.
type Error struct {
	Err     error
	Context map[string]any
}

func (SetState) Kind() DirectiveKind         { return KindSetState }
func (ReplaceState) Kind() DirectiveKind     { return KindReplaceState }
func (DeleteKeys) Kind() DirectiveKind       { return KindDeleteKeys }
func (SetPath) Kind() DirectiveKind          { return KindSetPath }
func (DeletePath) Kind() DirectiveKind       { return KindDeletePath }
func (EnqueueAction) Kind() DirectiveKind    { return KindEnqueueAction }
func (RegisterAction) Kind() DirectiveKind   { return KindRegisterAction }
func (DeregisterAction) Kind() DirectiveKind { return KindDeregisterAction }
func (Spawn) Kind() DirectiveKind            { return KindSpawn }
func (Kill) Kind() DirectiveKind             { return KindKill }
func (AddRoute) Kind() DirectiveKind         { return KindAddRoute }
func (RemoveRoute) Kind() DirectiveKind      { return KindRemoveRoute }
func (Error) Kind() DirectiveKind            { return KindError }

func (SetState) directive()         {}
func (ReplaceState) directive()     {}
func (DeleteKeys) directive()       {}
func (SetPath) directive()          {}
func (DeletePath) directive()       {}
func (EnqueueAction) directive()    {}
func (RegisterAction) directive()   {}
func (DeregisterAction) directive() {}
func (Spawn) directive()            {}
func (Kill) directive()             {}
func (AddRoute) directive()         {}
func (RemoveRoute) directive()      {}
func (Error) directive()            {}

// Error implements the error interface so an Error directive can be
// returned or wrapped directly.
func (e Error) Error() string {
	if e.Err == nil {
		return "instruction failed"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e Error) Unwrap() error {
	return e.Err
}

// IsStateDirective reports whether d mutates agent state.
func IsStateDirective(d Directive) bool {
	switch d.(type) {
	case SetState, ReplaceState, DeleteKeys, SetPath, DeletePath:
		return true
	default:
		return false
	}
}

// Split partitions directives into state directives and everything else,
// preserving order within each group.
func Split(directives []Directive) (state, other []Directive) {
	for _, d := range directives {
		if d == nil {
			continue
		}
		if IsStateDirective(d) {
			state = append(state, d)
		} else {
			other = append(other, d)
		}
	}
	return state, other
}
