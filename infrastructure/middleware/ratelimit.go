package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/middleware"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
)

// ErrRateLimited is returned when an action execution exceeds its rate.
var ErrRateLimited = errors.New("action rate limit exceeded")

// RateLimitScope defines how rate limiting keys are generated.
type RateLimitScope string

const (
	// ScopeGlobal shares one bucket across every action.
	ScopeGlobal RateLimitScope = "global"
	// ScopePerAction keeps one bucket per action name.
	ScopePerAction RateLimitScope = "per_action"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Limiter is the rate limiter to use.
	// If nil, one is created from Rate and Burst.
	Limiter ratelimit.RateLimiter

	// Scope determines how keys are generated. Default is ScopeGlobal.
	Scope RateLimitScope

	// Rate is the number of tokens added per interval.
	Rate int

	// Burst is the bucket capacity.
	Burst int

	// FailOpen allows executions when the limiter itself fails.
	FailOpen bool

	// OnLimitExceeded is called when an execution is rejected.
	OnLimitExceeded func(ctx context.Context, call *middleware.Call)
}

// DefaultRateLimitConfig returns the default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Scope: ScopeGlobal,
		Rate:  100,
		Burst: 100,
	}
}

// RateLimit returns middleware that rejects action executions above the
// configured rate with ErrRateLimited. A rejected execution surfaces as an
// ordinary action failure and is handled by the execution strategy.
func RateLimit(cfg RateLimitConfig) middleware.Middleware {
	limiter := cfg.Limiter
	if limiter == nil {
		rate := cfg.Rate
		if rate <= 0 {
			rate = 100
		}
		burst := cfg.Burst
		if burst <= 0 {
			burst = rate
		}
		limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    burst,
			FailOpen: cfg.FailOpen,
		})
	}

	scope := cfg.Scope
	if scope == "" {
		scope = ScopeGlobal
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, call *middleware.Call) (agent.Result, error) {
			key := rateLimitKey(scope, call)
			if !limiter.Allow(ctx, key) {
				logging.Warn().
					Add(logging.Action(actionName(call))).
					Add(logging.Str("scope", string(scope))).
					Add(logging.Str("key", key)).
					Msg("rate limit exceeded")

				if cfg.OnLimitExceeded != nil {
					cfg.OnLimitExceeded(ctx, call)
				}
				return agent.Result{}, fmt.Errorf("%w: %s", ErrRateLimited, actionName(call))
			}
			return next(ctx, call)
		}
	}
}

func rateLimitKey(scope RateLimitScope, call *middleware.Call) string {
	if scope == ScopePerAction {
		return "action:" + actionName(call)
	}
	return "global"
}
