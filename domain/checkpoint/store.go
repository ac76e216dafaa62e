// Package checkpoint provides the domain interface for persisting agent
// checkpoints.
package checkpoint

import (
	"context"
	"time"
)

// Store persists opaque checkpoint values by key. Implementations must
// report a missing key as ErrNotFound, whatever their backend returns.
type Store interface {
	// Put stores value under key.
	Put(ctx context.Context, key string, value []byte, opts PutOptions) error

	// Fetch returns the value stored under key, or ErrNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// PutOptions configures how a checkpoint is stored.
type PutOptions struct {
	// TTL is the time-to-live. Zero means no expiration.
	TTL time.Duration
}

// Closer is implemented by stores holding connections or files.
type Closer interface {
	Close() error
}
