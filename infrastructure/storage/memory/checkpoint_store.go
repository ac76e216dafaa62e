// Package memory provides in-memory storage implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/domain/clock"
)

// entry holds a stored value with expiration.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// CheckpointStore is an in-memory implementation of checkpoint.Store.
type CheckpointStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   clock.Clock
}

// StoreOption configures the store.
type StoreOption func(*CheckpointStore)

// WithClock sets the clock used for TTL expiry.
func WithClock(c clock.Clock) StoreOption {
	return func(s *CheckpointStore) {
		s.clock = c
	}
}

// NewCheckpointStore creates an empty in-memory store.
func NewCheckpointStore(opts ...StoreOption) *CheckpointStore {
	s := &CheckpointStore{
		entries: make(map[string]entry),
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a copy of value under key.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return checkpoint.ErrInvalidKey
	}

	e := entry{value: append([]byte(nil), value...)}
	if opts.TTL > 0 {
		e.expiresAt = s.clock.Now().Add(opts.TTL)
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

// Fetch returns a copy of the value stored under key.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, checkpoint.ErrNotFound
	}
	if !e.expiresAt.IsZero() && s.clock.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, checkpoint.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Delete removes key.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *CheckpointStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ checkpoint.Store = (*CheckpointStore)(nil)
