// Package middleware provides composable middleware around action execution.
package middleware

import (
	"context"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

// Call describes one action execution as seen by middleware.
type Call struct {
	// Action is the resolved action being executed.
	Action agent.Action
	// Params are the instruction parameters.
	Params map[string]any
	// Context is the action context, including the "state" snapshot.
	Context map[string]any
}

// Handler executes an action call and returns its result.
type Handler func(ctx context.Context, call *Call) (agent.Result, error)

// Middleware wraps a Handler with additional behavior.
// Middleware can run code before or after the next handler, short-circuit
// by not calling next, or transform the result.
type Middleware func(next Handler) Handler

// Chain composes multiple middleware into a single middleware.
// Chain(A, B, C) produces: A -> B -> C -> handler
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		handler := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// Noop returns a middleware that passes through.
func Noop() Middleware {
	return func(next Handler) Handler {
		return next
	}
}

// Executor is an agent.Executor that runs every action through a
// middleware chain before handing it to an inner executor.
type Executor struct {
	handler Handler
}

// Wrap returns an Executor applying middlewares around inner. A nil inner
// executor defaults to agent.DirectExecutor.
func Wrap(inner agent.Executor, middlewares ...Middleware) *Executor {
	if inner == nil {
		inner = agent.DirectExecutor{}
	}
	final := func(ctx context.Context, call *Call) (agent.Result, error) {
		return inner.Execute(ctx, call.Action, call.Params, call.Context)
	}
	return &Executor{handler: Chain(middlewares...)(final)}
}

// Execute implements agent.Executor.
func (e *Executor) Execute(ctx context.Context, action agent.Action, params, actx map[string]any) (agent.Result, error) {
	return e.handler(ctx, &Call{Action: action, Params: params, Context: actx})
}

var _ agent.Executor = (*Executor)(nil)
