// Package config provides domain models for runtime configuration.
package config

import "time"

// RuntimeConfig is the complete configuration of an agent runtime process.
type RuntimeConfig struct {
	// Name is a human-readable name for this runtime instance.
	Name string `json:"name" yaml:"name"`
	// InstanceID identifies this process in emitted telemetry. Generated when empty.
	InstanceID string `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`

	Server     ServerConfig     `json:"server,omitempty" yaml:"server,omitempty"`
	Logging    LoggingConfig    `json:"logging,omitempty" yaml:"logging,omitempty"`
	Checkpoint CheckpointConfig `json:"checkpoint,omitempty" yaml:"checkpoint,omitempty"`
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	Telemetry  TelemetryConfig  `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// ServerConfig configures agent servers.
type ServerConfig struct {
	// MaxQueueSize bounds the inbound queue (default: 10000).
	MaxQueueSize int `json:"max_queue_size,omitempty" yaml:"max_queue_size,omitempty"`
	// Mode is "auto" or "step" (default: auto).
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// Strategy is "direct" or "halt_on_error" (default: direct).
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// CallTimeout is the default timeout for synchronous calls.
	CallTimeout Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
	// ShutdownTimeout bounds how long a stop waits for children.
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
	// Thread enables thread tracking.
	Thread bool `json:"thread,omitempty" yaml:"thread,omitempty"`
	// Debug enables the debug event ring buffer.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
	// DebugBufferSize is the ring buffer capacity (default: 256).
	DebugBufferSize int `json:"debug_buffer_size,omitempty" yaml:"debug_buffer_size,omitempty"`
	// ValidateOnBatch re-validates state after every batch.
	ValidateOnBatch bool `json:"validate_on_batch,omitempty" yaml:"validate_on_batch,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// CheckpointConfig selects and configures a checkpoint backend.
type CheckpointConfig struct {
	// Backend is one of none, memory, filesystem, redis, badger, sqlite,
	// postgres, mongodb or dynamodb.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// KeyPrefix is prepended to every checkpoint key.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// RestoreOnStart resumes agents from their last checkpoint.
	RestoreOnStart bool `json:"restore_on_start,omitempty" yaml:"restore_on_start,omitempty"`
	// TTL expires checkpoints after the given duration.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	// Dir is the directory for the filesystem and badger backends.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Address is the redis address.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// Password is the redis password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DSN is the sqlite or postgres data source name.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// URI is the mongodb connection URI.
	URI string `json:"uri,omitempty" yaml:"uri,omitempty"`
	// Database is the mongodb database.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// Table is the dynamodb table, postgres table or mongodb collection.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// Region is the dynamodb region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Endpoint overrides the dynamodb endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// DB is the redis database index.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// PoolSize caps redis and sqlite connections. Zero keeps the backend default.
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	// Timeout bounds redis dial, read and write operations.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// JournalMode is the sqlite journal mode.
	JournalMode string `json:"journal_mode,omitempty" yaml:"journal_mode,omitempty"`
	// BusyTimeout is how long sqlite waits on a locked database.
	BusyTimeout Duration `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"`
	// SyncWrites makes badger fsync every write.
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`
}

// ResilienceConfig configures the resilient action executor.
type ResilienceConfig struct {
	// Enabled wraps action execution with bulkhead, breaker and retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxConcurrent bounds concurrent action executions.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// Timeout bounds a single action execution.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retries for idempotent actions.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures the circuit breaker.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// RateLimit caps action executions per second. Zero rate disables it.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// RateLimitConfig contains action rate limit settings.
type RateLimitConfig struct {
	Rate  int `json:"rate,omitempty" yaml:"rate,omitempty"`
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
	// Scope is "global" or "per_action".
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// RetryConfig contains retry settings.
type RetryConfig struct {
	MaxAttempts  int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	Multiplier   float64  `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig contains circuit breaker settings.
type CircuitBreakerConfig struct {
	Threshold int      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	// Metrics records events as OpenTelemetry metrics.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	// Prometheus records events in a Prometheus registry.
	Prometheus bool `json:"prometheus,omitempty" yaml:"prometheus,omitempty"`
	// LogEvents writes every event to the debug log.
	LogEvents bool `json:"log_events,omitempty" yaml:"log_events,omitempty"`
	// Tracing configures span export.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	Enabled    bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Exporter   string  `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	Endpoint   string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure   bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Default returns a configuration with every default filled in.
func Default() RuntimeConfig {
	return RuntimeConfig{
		Name: "agent-runtime",
		Server: ServerConfig{
			MaxQueueSize:    10000,
			Mode:            "auto",
			Strategy:        "direct",
			CallTimeout:     Duration(5 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
			DebugBufferSize: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Checkpoint: CheckpointConfig{
			Backend:   "none",
			KeyPrefix: "agent:",
		},
		Resilience: ResilienceConfig{
			MaxConcurrent: 10,
			Timeout:       Duration(30 * time.Second),
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: Duration(100 * time.Millisecond),
				Multiplier:   2.0,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
