package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates runtime configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *RuntimeConfig) ValidationErrors {
	v.errors = nil

	v.validateServer(config)
	v.validateLogging(config)
	v.validateCheckpoint(config)
	v.validateResilience(config)
	v.validateTelemetry(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateServer(config *RuntimeConfig) {
	s := config.Server
	if s.MaxQueueSize < 0 {
		v.addError("server.max_queue_size", "max_queue_size must be non-negative")
	}
	switch s.Mode {
	case "", "auto", "step":
	default:
		v.addError("server.mode", fmt.Sprintf("invalid mode: %s", s.Mode))
	}
	switch s.Strategy {
	case "", "direct", "halt_on_error":
	default:
		v.addError("server.strategy", fmt.Sprintf("invalid strategy: %s", s.Strategy))
	}
	if s.CallTimeout < 0 {
		v.addError("server.call_timeout", "call_timeout must be non-negative")
	}
	if s.DebugBufferSize < 0 {
		v.addError("server.debug_buffer_size", "debug_buffer_size must be non-negative")
	}
}

func (v *Validator) validateLogging(config *RuntimeConfig) {
	switch config.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "", "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateCheckpoint(config *RuntimeConfig) {
	c := config.Checkpoint
	switch c.Backend {
	case "", "none", "memory":
	case "filesystem":
		if c.Dir == "" {
			v.addError("checkpoint.dir", "dir is required for the filesystem backend")
		}
	case "badger":
		// An empty dir runs badger in memory.
	case "redis":
		if c.Address == "" {
			v.addError("checkpoint.address", "address is required for the redis backend")
		}
	case "sqlite", "postgres":
		if c.DSN == "" {
			v.addError("checkpoint.dsn", fmt.Sprintf("dsn is required for the %s backend", c.Backend))
		}
	case "mongodb":
		if c.URI == "" {
			v.addError("checkpoint.uri", "uri is required for the mongodb backend")
		}
	case "dynamodb":
		if c.Table == "" {
			v.addError("checkpoint.table", "table is required for the dynamodb backend")
		}
	default:
		v.addError("checkpoint.backend", fmt.Sprintf("unknown backend: %s", c.Backend))
	}
	if c.TTL < 0 {
		v.addError("checkpoint.ttl", "ttl must be non-negative")
	}
	if c.DB < 0 {
		v.addError("checkpoint.db", "db must be non-negative")
	}
	if c.PoolSize < 0 {
		v.addError("checkpoint.pool_size", "pool_size must be non-negative")
	}
	if c.Timeout < 0 || c.BusyTimeout < 0 {
		v.addError("checkpoint.timeout", "timeouts must be non-negative")
	}
	switch strings.ToUpper(c.JournalMode) {
	case "", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		v.addError("checkpoint.journal_mode", fmt.Sprintf("invalid journal mode: %s", c.JournalMode))
	}
}

func (v *Validator) validateResilience(config *RuntimeConfig) {
	r := config.Resilience
	if r.RateLimit.Rate < 0 || r.RateLimit.Burst < 0 {
		v.addError("resilience.rate_limit", "rate and burst must be non-negative")
	}
	switch r.RateLimit.Scope {
	case "", "global", "per_action":
	default:
		v.addError("resilience.rate_limit.scope", "scope must be global or per_action")
	}
	if !r.Enabled {
		return
	}
	if r.MaxConcurrent < 0 {
		v.addError("resilience.max_concurrent", "max_concurrent must be non-negative")
	}
	if r.Retry.MaxAttempts < 0 {
		v.addError("resilience.retry.max_attempts", "max_attempts must be non-negative")
	}
	if r.Retry.Multiplier != 0 && r.Retry.Multiplier < 1 {
		v.addError("resilience.retry.multiplier", "multiplier must be at least 1")
	}
	if r.CircuitBreaker.Threshold < 0 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
}

func (v *Validator) validateTelemetry(config *RuntimeConfig) {
	t := config.Telemetry.Tracing
	if !t.Enabled {
		return
	}
	switch t.Exporter {
	case "", "stdout", "noop":
	case "otlp":
		if t.Endpoint == "" {
			v.addError("telemetry.tracing.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("telemetry.tracing.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("telemetry.tracing.sample_rate", "sample_rate must be between 0 and 1")
	}
}
