package resilience

import (
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/config"
)

// Option configures the executor.
type Option func(*ExecutorConfig)

// WithMaxConcurrent bounds concurrent action executions.
func WithMaxConcurrent(n int) Option {
	return func(c *ExecutorConfig) {
		c.MaxConcurrent = n
	}
}

// WithCircuitBreakerThreshold sets the consecutive failures that open the breaker.
func WithCircuitBreakerThreshold(n int) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerThreshold = n
	}
}

// WithCircuitBreakerTimeout sets how long the breaker stays open.
func WithCircuitBreakerTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.CircuitBreakerTimeout = d
	}
}

// WithRetryAttempts sets the attempts made for idempotent actions.
func WithRetryAttempts(n int) Option {
	return func(c *ExecutorConfig) {
		c.RetryMaxAttempts = n
	}
}

// WithRetryDelay sets the first backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.RetryInitialDelay = d
	}
}

// WithBackoffMultiplier sets the exponential backoff multiplier.
func WithBackoffMultiplier(m float64) Option {
	return func(c *ExecutorConfig) {
		c.RetryBackoffMultiplier = m
	}
}

// WithTimeout bounds a single action execution.
func WithTimeout(d time.Duration) Option {
	return func(c *ExecutorConfig) {
		c.DefaultTimeout = d
	}
}

// OptionsFrom turns the runtime resilience section into options. Zero
// values are skipped so the defaults stay in place.
func OptionsFrom(rc config.ResilienceConfig) []Option {
	var opts []Option
	if rc.MaxConcurrent > 0 {
		opts = append(opts, WithMaxConcurrent(rc.MaxConcurrent))
	}
	if rc.Timeout > 0 {
		opts = append(opts, WithTimeout(rc.Timeout.Duration()))
	}
	if rc.Retry.MaxAttempts > 0 {
		opts = append(opts, WithRetryAttempts(rc.Retry.MaxAttempts))
	}
	if rc.Retry.InitialDelay > 0 {
		opts = append(opts, WithRetryDelay(rc.Retry.InitialDelay.Duration()))
	}
	if rc.Retry.Multiplier > 0 {
		opts = append(opts, WithBackoffMultiplier(rc.Retry.Multiplier))
	}
	if rc.CircuitBreaker.Threshold > 0 {
		opts = append(opts, WithCircuitBreakerThreshold(rc.CircuitBreaker.Threshold))
	}
	if rc.CircuitBreaker.Timeout > 0 {
		opts = append(opts, WithCircuitBreakerTimeout(rc.CircuitBreaker.Timeout.Duration()))
	}
	return opts
}

// NewExecutorWithOptions creates an executor from the defaults and opts.
func NewExecutorWithOptions(opts ...Option) *Executor {
	cfg := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewExecutor(cfg)
}
