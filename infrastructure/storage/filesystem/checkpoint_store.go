// Package filesystem provides a filesystem-based checkpoint store.
package filesystem

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/domain/clock"
)

// record is the on-disk form of a checkpoint entry.
type record struct {
	Value     []byte     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CheckpointStore implements checkpoint.Store using the local filesystem.
// Each key is stored in its own file named by the hex-encoded key.
type CheckpointStore struct {
	basePath string
	clock    clock.Clock
}

// StoreOption configures the store.
type StoreOption func(*CheckpointStore)

// WithClock sets the clock used for TTL expiry.
func WithClock(c clock.Clock) StoreOption {
	return func(s *CheckpointStore) {
		s.clock = c
	}
}

// NewCheckpointStore creates a store rooted at basePath.
func NewCheckpointStore(basePath string, opts ...StoreOption) (*CheckpointStore, error) {
	// Ensure base path exists with restrictive permissions (G301 fix)
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	s := &CheckpointStore{basePath: basePath, clock: clock.System{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *CheckpointStore) path(key string) string {
	return filepath.Join(s.basePath, hex.EncodeToString([]byte(key))+".json")
}

// Put writes value under key. The write goes to a temp file that is
// renamed into place so readers never see a partial checkpoint.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if key == "" {
		return checkpoint.ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := record{Value: value}
	if opts.TTL > 0 {
		exp := s.clock.Now().Add(opts.TTL)
		rec.ExpiresAt = &exp
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.basePath, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        // #nosec G104 -- best-effort cleanup in error path
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// Fetch reads the value stored under key.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, checkpoint.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Join(checkpoint.ErrCorrupt, err)
	}

	if rec.ExpiresAt != nil && !s.clock.Now().Before(*rec.ExpiresAt) {
		os.Remove(s.path(key)) // #nosec G104 -- expired entry, best-effort
		return nil, checkpoint.ErrNotFound
	}
	return rec.Value, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

var _ checkpoint.Store = (*CheckpointStore)(nil)
