package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// CheckpointStore is a Redis-backed implementation of checkpoint.Store.
type CheckpointStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewCheckpointStore connects to Redis and verifies the connection.
func NewCheckpointStore(cfg Config, opts ...ConfigOption) (*CheckpointStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(cfg.options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}

	return &CheckpointStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewCheckpointStoreFromClient creates a store from an existing Redis client.
func NewCheckpointStoreFromClient(client *redis.Client, keyPrefix string) *CheckpointStore {
	return &CheckpointStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// prefixKey adds the key prefix.
func (s *CheckpointStore) prefixKey(key string) string {
	return s.keyPrefix + "checkpoint:" + key
}

// Put stores value under key.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return checkpoint.ErrInvalidKey
	}

	var expiration time.Duration
	if opts.TTL > 0 {
		expiration = opts.TTL
	}

	if err := s.client.Set(ctx, s.prefixKey(key), value, expiration).Err(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Fetch returns the value stored under key.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, checkpoint.ErrNotFound
		}
		return nil, wrapError(err)
	}
	return value, nil
}

// Delete removes key.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Del(ctx, s.prefixKey(key)).Err(); err != nil {
		return wrapError(err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *CheckpointStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}

// wrapError wraps Redis errors with domain errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(checkpoint.ErrOperationTimeout, err)
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(checkpoint.ErrOperationTimeout, err)
	}

	return err
}

var (
	_ checkpoint.Store  = (*CheckpointStore)(nil)
	_ checkpoint.Closer = (*CheckpointStore)(nil)
)
