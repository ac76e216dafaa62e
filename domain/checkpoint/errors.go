package checkpoint

import "errors"

// Domain errors for checkpoint operations.
var (
	// ErrNotFound is returned when no checkpoint exists for a key.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrInvalidKey is returned when a key is invalid (e.g., empty).
	ErrInvalidKey = errors.New("invalid checkpoint key")

	// ErrConnectionFailed is returned when connection to the backend fails.
	ErrConnectionFailed = errors.New("checkpoint store connection failed")

	// ErrOperationTimeout is returned when a backend operation times out.
	ErrOperationTimeout = errors.New("checkpoint store operation timeout")

	// ErrCorrupt is returned when a stored checkpoint cannot be decoded.
	ErrCorrupt = errors.New("checkpoint is corrupt")
)
