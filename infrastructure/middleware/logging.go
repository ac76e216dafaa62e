// Package middleware provides action-execution middleware built on the
// runtime's logging and fortify stacks.
package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/middleware"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// LogParams logs instruction parameters (may contain sensitive data).
	LogParams bool
}

// Logging returns middleware that logs every action execution.
func Logging(cfg LoggingConfig) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, call *middleware.Call) (agent.Result, error) {
			name := actionName(call)
			start := time.Now()

			entry := logging.Debug().Add(logging.Action(name))
			if cfg.LogParams && len(call.Params) > 0 {
				entry = entry.Add(logging.Int("params", len(call.Params)))
				for k, v := range call.Params {
					if s, ok := v.(string); ok {
						entry = entry.Add(logging.Str("param."+k, s))
					}
				}
			}
			entry.Msg("executing action")

			result, err := next(ctx, call)
			duration := time.Since(start)

			if err != nil {
				logging.Warn().
					Add(logging.Action(name)).
					Add(logging.ErrorField(err)).
					Add(logging.Duration(duration)).
					Msg("action failed")
				return result, err
			}

			logging.Debug().
				Add(logging.Action(name)).
				Add(logging.Duration(duration)).
				Add(logging.Int("directives", len(result.Directives))).
				Msg("action executed")
			return result, nil
		}
	}
}

func actionName(call *middleware.Call) string {
	if call.Action == nil {
		return ""
	}
	return call.Action.Name()
}
