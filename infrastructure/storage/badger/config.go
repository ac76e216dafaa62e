// Package badger provides a BadgerDB-backed checkpoint store.
package badger

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// Config configures an embedded checkpoint database.
type Config struct {
	// Dir holds the database files. Ignored when InMemory is set.
	Dir      string
	InMemory bool

	// SyncWrites fsyncs every commit before Save returns.
	SyncWrites bool

	// Value log GC runs every GCInterval on disk-backed stores.
	GCInterval     time.Duration
	GCDiscardRatio float64

	KeyPrefix string
}

// Option configures BadgerDB storage.
type Option func(*Config)

// WithDir sets the data directory.
func WithDir(dir string) Option {
	return func(c *Config) { c.Dir = dir }
}

// WithInMemory keeps all data in memory.
func WithInMemory() Option {
	return func(c *Config) { c.InMemory = true }
}

// WithSyncWrites toggles synchronous commits.
func WithSyncWrites(sync bool) Option {
	return func(c *Config) { c.SyncWrites = sync }
}

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// DefaultConfig returns an asynchronous on-disk configuration.
func DefaultConfig() Config {
	return Config{
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// badgerOptions translates cfg. Badger's own logger is silenced; store
// errors surface through the checkpoint API instead.
func badgerOptions(cfg Config) badger.Options {
	opts := badger.DefaultOptions(cfg.Dir).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	return opts
}

func openDB(cfg Config) (*badger.DB, error) {
	db, err := badger.Open(badgerOptions(cfg))
	if err != nil {
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}
	return db, nil
}
