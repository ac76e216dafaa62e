// Package resilience provides resilient action execution using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

// Executor runs actions behind a bulkhead, a timeout, a circuit breaker and,
// for idempotent actions, a retry policy.
type Executor struct {
	bulkhead bulkhead.Bulkhead[agent.Result]
	breaker  circuitbreaker.CircuitBreaker[agent.Result]
	retry    retry.Retry[agent.Result]
	timeout  time.Duration
	inner    agent.Executor
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent action executions.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of attempts for idempotent actions.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// DefaultTimeout bounds a single execution.
	DefaultTimeout time.Duration
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       100 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		DefaultTimeout:          30 * time.Second,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	// Ensure non-negative values for uint32 conversion (G115 fix)
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	threshold := cfg.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Executor{
		bulkhead: bulkhead.New[agent.Result](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[agent.Result](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    cfg.CircuitBreakerTimeout,
			Timeout:     cfg.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[agent.Result](retry.Config{
			MaxAttempts:        cfg.RetryMaxAttempts,
			InitialDelay:       cfg.RetryInitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         cfg.RetryBackoffMultiplier,
			NonRetryableErrors: []error{agent.ErrActionPanicked},
		}),
		timeout: timeout,
		inner:   agent.DirectExecutor{},
	}
}

// Execute implements agent.Executor.
// Composition order: Bulkhead → Timeout → Circuit Breaker → Retry (for idempotent)
func (e *Executor) Execute(ctx context.Context, action agent.Action, params, actx map[string]any) (agent.Result, error) {
	if action == nil {
		return agent.Result{}, agent.ErrMissingAction
	}

	return e.bulkhead.Execute(ctx, func(ctx context.Context) (agent.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		return e.breaker.Execute(ctx, func(ctx context.Context) (agent.Result, error) {
			if isIdempotent(action) {
				return e.retry.Do(ctx, func(ctx context.Context) (agent.Result, error) {
					return e.inner.Execute(ctx, action, params, actx)
				})
			}
			return e.inner.Execute(ctx, action, params, actx)
		})
	})
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor) CircuitBreakerState() circuitbreaker.State {
	return e.breaker.State()
}

func isIdempotent(a agent.Action) bool {
	i, ok := a.(agent.Idempotent)
	return ok && i.Idempotent()
}

var _ agent.Executor = (*Executor)(nil)
