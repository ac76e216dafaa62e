package route

import "errors"

// Domain errors for routing.
var (
	// ErrNoRoute indicates no route matched a signal type.
	ErrNoRoute = errors.New("routing error: no route matches signal")

	// ErrInvalidPattern indicates a malformed route pattern.
	ErrInvalidPattern = errors.New("invalid route pattern")

	// ErrMissingTarget indicates a route without a target action.
	ErrMissingTarget = errors.New("route target has no action")
)
