// Package sqlite provides a SQLite-backed checkpoint store.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
)

// Config configures SQLite storage.
type Config struct {
	// DSN is a go-sqlite3 data source, e.g. "file:checkpoints.db?mode=rwc".
	DSN          string
	MaxOpenConns int

	// JournalMode is applied with PRAGMA journal_mode when non-empty.
	JournalMode string
	BusyTimeout time.Duration

	KeyPrefix string
}

// Option configures SQLite storage.
type Option func(*Config)

// WithDSN sets the data source name.
func WithDSN(dsn string) Option {
	return func(c *Config) { c.DSN = dsn }
}

// WithMaxOpenConns caps open connections. Zero keeps the default.
func WithMaxOpenConns(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxOpenConns = n
		}
	}
}

// WithJournalMode sets the journal mode. Empty keeps the default.
func WithJournalMode(mode string) Option {
	return func(c *Config) {
		if mode != "" {
			c.JournalMode = mode
		}
	}
}

// WithBusyTimeout sets how long a writer waits on a locked database.
// Zero keeps the default.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.BusyTimeout = d
		}
	}
}

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// DefaultConfig returns a WAL-mode configuration for a local file.
func DefaultConfig() Config {
	return Config{
		DSN:          "file:checkpoints.db?mode=rwc",
		MaxOpenConns: 10,
		JournalMode:  "WAL",
		BusyTimeout:  5 * time.Second,
	}
}

var (
	// ErrMigrationFailed is returned when the schema cannot be created.
	ErrMigrationFailed = errors.New("sqlite: migration failed")

	// ErrInvalidJournalMode is returned for a mode SQLite does not know.
	ErrInvalidJournalMode = errors.New("sqlite: invalid journal mode")
)

var journalModes = map[string]bool{
	"DELETE": true, "TRUNCATE": true, "PERSIST": true,
	"MEMORY": true, "WAL": true, "OFF": true,
}

// pragmas returns the statements run on open. The journal mode is
// checked against a fixed set since it is spliced into the statement.
func (c Config) pragmas() ([]string, error) {
	var out []string
	if c.JournalMode != "" {
		mode := strings.ToUpper(c.JournalMode)
		if !journalModes[mode] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidJournalMode, c.JournalMode)
		}
		out = append(out, "PRAGMA journal_mode="+mode)
	}
	if c.BusyTimeout > 0 {
		out = append(out, "PRAGMA busy_timeout="+strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	}
	return out, nil
}

func openDB(cfg Config) (*sql.DB, error) {
	pragmas, err := cfg.pragmas()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrMigrationFailed, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(checkpoint.ErrConnectionFailed, err)
	}
	return db, nil
}
