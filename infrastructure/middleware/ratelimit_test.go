package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/middleware"
)

func noopAction(name string) agent.Action {
	return agent.NewAction(name, func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{State: map[string]any{"ran": name}}, nil
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("allows executions within limit", func(t *testing.T) {
		t.Parallel()

		exec := middleware.Wrap(nil, RateLimit(RateLimitConfig{Rate: 100, Burst: 100}))
		for i := 0; i < 10; i++ {
			if _, err := exec.Execute(context.Background(), noopAction("a"), nil, nil); err != nil {
				t.Fatalf("execution %d should succeed: %v", i, err)
			}
		}
	})

	t.Run("rejects executions above limit", func(t *testing.T) {
		t.Parallel()

		limited := 0
		exec := middleware.Wrap(nil, RateLimit(RateLimitConfig{
			Limiter: ratelimit.New(&ratelimit.Config{Rate: 1, Burst: 1}),
			OnLimitExceeded: func(context.Context, *middleware.Call) {
				limited++
			},
		}))

		if _, err := exec.Execute(context.Background(), noopAction("a"), nil, nil); err != nil {
			t.Fatalf("first execution should succeed: %v", err)
		}
		_, err := exec.Execute(context.Background(), noopAction("a"), nil, nil)
		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("error = %v, want %v", err, ErrRateLimited)
		}
		if limited != 1 {
			t.Errorf("OnLimitExceeded calls = %d, want 1", limited)
		}
	})

	t.Run("per action scope keeps separate buckets", func(t *testing.T) {
		t.Parallel()

		exec := middleware.Wrap(nil, RateLimit(RateLimitConfig{
			Limiter: ratelimit.New(&ratelimit.Config{Rate: 1, Burst: 1}),
			Scope:   ScopePerAction,
		}))

		if _, err := exec.Execute(context.Background(), noopAction("a"), nil, nil); err != nil {
			t.Fatalf("a should succeed: %v", err)
		}
		if _, err := exec.Execute(context.Background(), noopAction("b"), nil, nil); err != nil {
			t.Errorf("b should have its own bucket: %v", err)
		}
		if _, err := exec.Execute(context.Background(), noopAction("a"), nil, nil); !errors.Is(err, ErrRateLimited) {
			t.Errorf("second a error = %v, want %v", err, ErrRateLimited)
		}
	})
}

func TestRateLimitKey(t *testing.T) {
	t.Parallel()

	call := &middleware.Call{Action: noopAction("inc")}
	tests := []struct {
		scope RateLimitScope
		want  string
	}{
		{ScopeGlobal, "global"},
		{"", "global"},
		{ScopePerAction, "action:inc"},
	}

	for _, tt := range tests {
		if got := rateLimitKey(tt.scope, call); got != tt.want {
			t.Errorf("rateLimitKey(%q) = %q, want %q", tt.scope, got, tt.want)
		}
	}
}

func TestLogging(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	failing := agent.NewAction("fail", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{}, errBoom
	})

	exec := middleware.Wrap(nil, Logging(LoggingConfig{LogParams: true}))

	result, err := exec.Execute(context.Background(), noopAction("ok"), map[string]any{"k": "v"}, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.State["ran"] != "ok" {
		t.Errorf("State = %v, want ran=ok", result.State)
	}

	if _, err := exec.Execute(context.Background(), failing, nil, nil); !errors.Is(err, errBoom) {
		t.Errorf("error = %v, want %v", err, errBoom)
	}
}
