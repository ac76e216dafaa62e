// Package redis provides a Redis-backed checkpoint store.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the client settings for a checkpoint store.
type Config struct {
	Address  string
	Password string
	DB       int

	// Timeout bounds dialing and each socket read or write.
	Timeout    time.Duration
	PoolSize   int
	MaxRetries int

	// KeyPrefix namespaces keys when several runtimes share a database.
	KeyPrefix string
}

// DefaultConfig targets a local server with no key prefix.
func DefaultConfig() Config {
	return Config{
		Address:    "localhost:6379",
		Timeout:    3 * time.Second,
		PoolSize:   10,
		MaxRetries: 3,
	}
}

// ConfigOption configures the Redis connection.
type ConfigOption func(*Config)

// WithAddress sets the host:port of the server.
func WithAddress(addr string) ConfigOption {
	return func(c *Config) { c.Address = addr }
}

// WithPassword sets the AUTH password.
func WithPassword(password string) ConfigOption {
	return func(c *Config) { c.Password = password }
}

// WithDB selects the logical database index.
func WithDB(db int) ConfigOption {
	return func(c *Config) { c.DB = db }
}

// WithPoolSize caps the number of pooled connections. Zero keeps the default.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) {
		if size > 0 {
			c.PoolSize = size
		}
	}
}

// WithTimeout sets the dial and I/O timeout. Zero keeps the default.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) { c.KeyPrefix = prefix }
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Address,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.Timeout,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
		PoolSize:     c.PoolSize,
	}
}
