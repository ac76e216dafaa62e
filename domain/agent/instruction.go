package agent

import "maps"

// Instruction is a concrete unit of work: an action with parameters and
// a context map.
type Instruction struct {
	ID      string         `json:"id"`
	Action  Action         `json:"-"`
	Params  map[string]any `json:"params,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// NewInstruction creates an instruction for the given action.
func NewInstruction(id string, action Action, params map[string]any) Instruction {
	return Instruction{ID: id, Action: action, Params: params}
}

// ActionName returns the name of the instruction's action, or "" when unset.
func (i Instruction) ActionName() string {
	if i.Action == nil {
		return ""
	}
	return i.Action.Name()
}

// Validate performs the admission checks: the action must be present and
// registered in actions.
func (i Instruction) Validate(actions *ActionSet) error {
	if i.Action == nil {
		return ErrMissingAction
	}
	if actions == nil || !actions.Has(i.Action.Name()) {
		return &InvalidActionError{Action: i.Action.Name()}
	}
	return nil
}

// CorrelationKey returns the instruction ID.
func (i Instruction) CorrelationKey() string {
	return i.ID
}

// Clone returns a copy with its own params and context maps.
func (i Instruction) Clone() Instruction {
	i.Params = maps.Clone(i.Params)
	i.Context = maps.Clone(i.Context)
	return i
}

// Batch is an ordered list of instructions submitted together.
type Batch []Instruction

// CorrelationKey returns the ID of the first instruction.
func (b Batch) CorrelationKey() string {
	if len(b) == 0 {
		return ""
	}
	return b[0].ID
}

// Validate checks every instruction in order and returns the first failure.
func (b Batch) Validate(actions *ActionSet) error {
	if len(b) == 0 {
		return ErrEmptyBatch
	}
	for _, inst := range b {
		if err := inst.Validate(actions); err != nil {
			return err
		}
	}
	return nil
}
