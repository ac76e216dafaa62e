package agent

import (
	"context"
	"fmt"
)

// Executor is the action-execution collaborator. It runs one action and
// returns its result; it never touches agent internals.
type Executor interface {
	Execute(ctx context.Context, action Action, params, actx map[string]any) (Result, error)
}

// DirectExecutor calls the action in the current goroutine and turns a
// panic into ErrActionPanicked.
type DirectExecutor struct{}

// Execute implements Executor.
func (DirectExecutor) Execute(ctx context.Context, action Action, params, actx map[string]any) (result Result, err error) {
	if action == nil {
		return Result{}, ErrMissingAction
	}
	defer func() {
		if r := recover(); r != nil {
			result = Result{}
			err = fmt.Errorf("%w: %s: %v", ErrActionPanicked, action.Name(), r)
		}
	}()
	return action.Execute(ctx, params, actx)
}

var _ Executor = DirectExecutor{}
