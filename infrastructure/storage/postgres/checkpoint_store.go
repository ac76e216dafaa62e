package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// CheckpointStore is a PostgreSQL-backed implementation of checkpoint.Store.
type CheckpointStore struct {
	pool   *pgxpool.Pool
	schema string
	table  string
	owned  bool
}

// Connect opens a pool, verifies it and optionally creates the table.
func Connect(ctx context.Context, cfg Config, opts ...ConfigOption) (*CheckpointStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}

	s := NewCheckpointStore(pool, cfg.Schema, cfg.Table)
	s.owned = true

	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewCheckpointStore creates a store on an existing pool.
func NewCheckpointStore(pool *pgxpool.Pool, schema, table string) *CheckpointStore {
	if schema == "" {
		schema = "public"
	}
	if table == "" {
		table = "checkpoints"
	}
	return &CheckpointStore{
		pool:   pool,
		schema: schema,
		table:  table,
	}
}

// tableName returns the fully qualified table name.
func (s *CheckpointStore) tableName() string {
	return pgx.Identifier{s.schema, s.table}.Sanitize()
}

// Migrate creates the checkpoints table if it doesn't exist.
func (s *CheckpointStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			expires_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, s.tableName())

	_, err := s.pool.Exec(ctx, query)
	return err
}

// Put stores value under key, replacing any previous value.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if key == "" {
		return checkpoint.ErrInvalidKey
	}

	var expiresAt *time.Time
	if opts.TTL > 0 {
		t := time.Now().Add(opts.TTL)
		expiresAt = &t
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, s.tableName())

	_, err := s.pool.Exec(ctx, query, key, value, expiresAt)
	return err
}

// Fetch returns the value stored under key. Expired rows count as missing.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`
		SELECT value FROM %s
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`, s.tableName())

	var value []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes key.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.tableName())
	_, err := s.pool.Exec(ctx, query, key)
	return err
}

// Close closes the pool if the store opened it.
func (s *CheckpointStore) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

var (
	_ checkpoint.Store  = (*CheckpointStore)(nil)
	_ checkpoint.Closer = (*CheckpointStore)(nil)
)
