package agent

import (
	"errors"
	"fmt"
)

// Domain errors for the agent runtime.
var (
	// ErrIllegalTransition indicates a status change outside the lifecycle.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInvalidInput is the parent of all instruction shape errors.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingAction indicates an instruction without an action.
	ErrMissingAction = fmt.Errorf("%w: missing action", ErrInvalidInput)

	// ErrInvalidAction indicates an action that is not registered on the agent.
	ErrInvalidAction = fmt.Errorf("%w: invalid action", ErrInvalidInput)

	// ErrEmptyBatch indicates a batch without instructions.
	ErrEmptyBatch = fmt.Errorf("%w: empty batch", ErrInvalidInput)

	// ErrCannotDeregisterSelf indicates an action tried to deregister itself.
	ErrCannotDeregisterSelf = errors.New("cannot deregister self")

	// ErrActionPanicked indicates an action panicked while executing.
	ErrActionPanicked = errors.New("action panicked")

	// ErrSchemaViolation indicates state does not satisfy the agent schema.
	ErrSchemaViolation = errors.New("state does not satisfy schema")
)

// InvalidActionError reports an action that is not registered.
type InvalidActionError struct {
	Action string
}

// Error implements the error interface.
func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidAction, e.Action)
}

// Unwrap lets errors.Is match ErrInvalidAction and ErrInvalidInput.
func (e *InvalidActionError) Unwrap() error {
	return ErrInvalidAction
}

// FieldError reports a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
