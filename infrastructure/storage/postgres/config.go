// Package postgres provides a PostgreSQL-backed checkpoint store.
package postgres

import (
	"fmt"
	"time"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	// DSN overrides the individual connection fields when set.
	DSN string

	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxConns is the maximum pool size.
	MaxConns int32
	// MinConns is the minimum number of idle connections.
	MinConns int32

	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration

	// Schema holds the checkpoints table.
	Schema string
	// Table is the checkpoints table name.
	Table string
	// AutoMigrate creates the table on connect.
	AutoMigrate bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "agent",
		User:            "postgres",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		Schema:          "public",
		Table:           "checkpoints",
		AutoMigrate:     true,
	}
}

// ConnectionString returns the DSN, or a keyword/value string built from the fields.
func (c Config) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}

// ConfigOption configures the PostgreSQL connection.
type ConfigOption func(*Config)

// WithDSN sets a full connection string.
func WithDSN(dsn string) ConfigOption {
	return func(c *Config) {
		c.DSN = dsn
	}
}

// WithHost sets the server host.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort sets the server port.
func WithPort(port int) ConfigOption {
	return func(c *Config) {
		c.Port = port
	}
}

// WithDatabase sets the database name.
func WithDatabase(db string) ConfigOption {
	return func(c *Config) {
		c.Database = db
	}
}

// WithCredentials sets the user and password.
func WithCredentials(user, password string) ConfigOption {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithSSLMode sets the SSL mode.
func WithSSLMode(mode string) ConfigOption {
	return func(c *Config) {
		c.SSLMode = mode
	}
}

// WithPoolSize sets the pool bounds.
func WithPoolSize(minConns, maxConns int32) ConfigOption {
	return func(c *Config) {
		c.MinConns = minConns
		c.MaxConns = maxConns
	}
}

// WithSchema sets the schema.
func WithSchema(schema string) ConfigOption {
	return func(c *Config) {
		c.Schema = schema
	}
}

// WithTable sets the table name.
func WithTable(table string) ConfigOption {
	return func(c *Config) {
		c.Table = table
	}
}
