package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// CheckpointStore is a SQLite-backed implementation of checkpoint.Store.
type CheckpointStore struct {
	db        *sql.DB
	keyPrefix string
	now       func() time.Time
}

// NewCheckpointStore opens the database and creates the table if missing.
func NewCheckpointStore(cfg Config, opts ...Option) (*CheckpointStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &CheckpointStore{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		now:       time.Now,
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewCheckpointStoreFromDB creates a store from an existing database connection.
func NewCheckpointStoreFromDB(db *sql.DB, keyPrefix string) (*CheckpointStore, error) {
	s := &CheckpointStore{
		db:        db,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrate creates the checkpoints table if it doesn't exist.
func (s *CheckpointStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_expires_at ON checkpoints(expires_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// prefixKey adds the key prefix.
func (s *CheckpointStore) prefixKey(key string) string {
	return s.keyPrefix + key
}

// Put stores value under key, replacing any previous value.
func (s *CheckpointStore) Put(ctx context.Context, key string, value []byte, opts checkpoint.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return checkpoint.ErrInvalidKey
	}

	now := s.now()
	var expiresAt sql.NullInt64
	if opts.TTL > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(opts.TTL).Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, s.prefixKey(key), value, expiresAt, now.Unix())
	return err
}

// Fetch returns the value stored under key.
func (s *CheckpointStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefixedKey := s.prefixKey(key)

	var value []byte
	var expiresAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM checkpoints WHERE key = ?",
		prefixedKey,
	).Scan(&value, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid && expiresAt.Int64 <= s.now().Unix() {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE key = ?", prefixedKey)
		return nil, checkpoint.ErrNotFound
	}

	return value, nil
}

// Delete removes key.
func (s *CheckpointStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE key = ?", s.prefixKey(key))
	return err
}

// Close closes the database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

var (
	_ checkpoint.Store  = (*CheckpointStore)(nil)
	_ checkpoint.Closer = (*CheckpointStore)(nil)
)
