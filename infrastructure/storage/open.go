// Package storage opens the checkpoint backend named in the runtime
// configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/domain/config"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/badger"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/dynamodb"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/filesystem"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/memory"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/redis"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/sqlite"
)

// Backend names accepted in checkpoint.backend.
const (
	BackendNone       = "none"
	BackendMemory     = "memory"
	BackendFilesystem = "filesystem"
	BackendBadger     = "badger"
	BackendRedis      = "redis"
	BackendSQLite     = "sqlite"
	BackendPostgres   = "postgres"
	BackendMongoDB    = "mongodb"
	BackendDynamoDB   = "dynamodb"
)

// ErrUnknownBackend is returned for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown checkpoint backend")

// Open returns the store for cfg, or nil when checkpointing is disabled.
// Keys are prefixed by the server, so backends are opened without a
// prefix of their own. Close the store with Close when done.
func Open(ctx context.Context, cfg config.CheckpointConfig) (checkpoint.Store, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil

	case BackendMemory:
		return memory.NewCheckpointStore(), nil

	case BackendFilesystem:
		return store(filesystem.NewCheckpointStore(cfg.Dir))

	case BackendBadger:
		opts := []badger.Option{badger.WithDir(cfg.Dir), badger.WithSyncWrites(cfg.SyncWrites)}
		if cfg.Dir == "" {
			opts = append(opts, badger.WithInMemory())
		}
		return store(badger.NewCheckpointStore(badger.DefaultConfig(), opts...))

	case BackendRedis:
		return store(redis.NewCheckpointStore(redis.DefaultConfig(),
			redis.WithAddress(cfg.Address),
			redis.WithPassword(cfg.Password),
			redis.WithDB(cfg.DB),
			redis.WithPoolSize(cfg.PoolSize),
			redis.WithTimeout(time.Duration(cfg.Timeout)),
		))

	case BackendSQLite:
		return store(sqlite.NewCheckpointStore(sqlite.DefaultConfig(),
			sqlite.WithDSN(cfg.DSN),
			sqlite.WithMaxOpenConns(cfg.PoolSize),
			sqlite.WithJournalMode(cfg.JournalMode),
			sqlite.WithBusyTimeout(time.Duration(cfg.BusyTimeout)),
		))

	case BackendPostgres:
		opts := []postgres.ConfigOption{postgres.WithDSN(cfg.DSN)}
		if cfg.Table != "" {
			opts = append(opts, postgres.WithTable(cfg.Table))
		}
		return store(postgres.Connect(ctx, postgres.DefaultConfig(), opts...))

	case BackendMongoDB:
		opts := []mongodb.ConfigOption{mongodb.WithURI(cfg.URI)}
		if cfg.Database != "" {
			opts = append(opts, mongodb.WithDatabase(cfg.Database))
		}
		if cfg.Table != "" {
			opts = append(opts, mongodb.WithCollection(cfg.Table))
		}
		return store(mongodb.Connect(ctx, mongodb.DefaultConfig(), opts...))

	case BackendDynamoDB:
		opts := []dynamodb.ConfigOption{dynamodb.WithTableName(cfg.Table)}
		if cfg.Region != "" {
			opts = append(opts, dynamodb.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, dynamodb.WithEndpoint(cfg.Endpoint))
		}
		client, err := dynamodb.NewClient(ctx, opts...)
		if err != nil {
			return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
		}
		if err := client.CreateTable(ctx); err != nil {
			return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
		}
		return dynamodb.NewCheckpointStore(client), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// Close releases the store if its backend holds resources.
func Close(s checkpoint.Store) error {
	if c, ok := s.(checkpoint.Closer); ok {
		return c.Close()
	}
	return nil
}

// store drops the typed nil a failed constructor returns.
func store[S checkpoint.Store](s S, err error) (checkpoint.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
