package signal

import "errors"

// Domain errors for signal construction.
var (
	// ErrInvalidType indicates the signal type is empty or has empty segments.
	ErrInvalidType = errors.New("invalid signal type")
)
