// Package mongodb provides a MongoDB-backed checkpoint store.
package mongodb

import "time"

// Config holds MongoDB connection configuration.
type Config struct {
	// URI is the connection string (e.g., "mongodb://localhost:27017").
	URI string

	// Database is the database name.
	Database string

	// Collection holds the checkpoint documents.
	Collection string

	// ConnectTimeout bounds the initial connection and ping.
	ConnectTimeout time.Duration

	// QueryTimeout bounds every store operation.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "agent",
		Collection:     "checkpoints",
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   5 * time.Second,
	}
}

// ConfigOption configures the MongoDB connection.
type ConfigOption func(*Config)

// WithURI sets the connection string.
func WithURI(uri string) ConfigOption {
	return func(c *Config) {
		c.URI = uri
	}
}

// WithDatabase sets the database name.
func WithDatabase(db string) ConfigOption {
	return func(c *Config) {
		c.Database = db
	}
}

// WithCollection sets the collection name.
func WithCollection(name string) ConfigOption {
	return func(c *Config) {
		c.Collection = name
	}
}

// WithQueryTimeout sets the per-operation timeout.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.QueryTimeout = d
	}
}
