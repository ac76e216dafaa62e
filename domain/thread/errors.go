package thread

import "errors"

// Domain errors for thread operations.
var (
	// ErrInvalidKind indicates an unknown entry kind.
	ErrInvalidKind = errors.New("invalid thread entry kind")
)
