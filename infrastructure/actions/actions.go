// Package actions provides the built-in actions every agent server
// registers by default.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
)

// Built-in action names.
const (
	NameNoop  = "noop"
	NameLog   = "log"
	NameSleep = "sleep"
)

// MaxSleep caps the sleep action.
const MaxSleep = time.Minute

// Defaults returns the built-in actions in registration order.
func Defaults() []agent.Action {
	return []agent.Action{Noop{}, Log{}, Sleep{}}
}

// Noop does nothing and succeeds.
type Noop struct{}

// Name implements agent.Action.
func (Noop) Name() string { return NameNoop }

// Execute implements agent.Action.
func (Noop) Execute(context.Context, map[string]any, map[string]any) (agent.Result, error) {
	return agent.Result{}, nil
}

// Idempotent implements agent.Idempotent.
func (Noop) Idempotent() bool { return true }

// Log writes params["message"] at params["level"] (default info).
type Log struct{}

// Name implements agent.Action.
func (Log) Name() string { return NameLog }

// Execute implements agent.Action.
func (Log) Execute(_ context.Context, params, actx map[string]any) (agent.Result, error) {
	msg, _ := params["message"].(string)
	if msg == "" {
		return agent.Result{}, fmt.Errorf("%w: log requires a message", agent.ErrInvalidInput)
	}
	level, _ := params["level"].(string)

	var ev *logging.LogEvent
	switch level {
	case "", "info":
		ev = logging.Info()
	case "debug":
		ev = logging.Debug()
	case "warn":
		ev = logging.Warn()
	case "error":
		ev = logging.Error()
	default:
		return agent.Result{}, fmt.Errorf("%w: unknown log level %q", agent.ErrInvalidInput, level)
	}

	ev = ev.Add(logging.Component("action")).Add(logging.Action(NameLog))
	if sig, ok := actx["signal"].(map[string]any); ok {
		if id, ok := sig["correlation_id"].(string); ok {
			ev = ev.Add(logging.CorrelationID(id))
		}
	}
	ev.Msg(msg)
	return agent.Result{}, nil
}

// Sleep waits for params["duration_ms"] or until the context ends.
type Sleep struct{}

// Name implements agent.Action.
func (Sleep) Name() string { return NameSleep }

// Execute implements agent.Action.
func (Sleep) Execute(ctx context.Context, params, _ map[string]any) (agent.Result, error) {
	ms, err := toInt64(params["duration_ms"])
	if err != nil {
		return agent.Result{}, fmt.Errorf("%w: duration_ms: %v", agent.ErrInvalidInput, err)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < 0 {
		return agent.Result{}, fmt.Errorf("%w: duration_ms must be non-negative", agent.ErrInvalidInput)
	}
	if d > MaxSleep {
		d = MaxSleep
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return agent.Result{}, nil
	case <-ctx.Done():
		return agent.Result{}, ctx.Err()
	}
}

// Idempotent implements agent.Idempotent.
func (Sleep) Idempotent() bool { return true }

// toInt64 accepts the numeric shapes that arrive from Go callers and
// decoded JSON or YAML.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

var (
	_ agent.Action     = Noop{}
	_ agent.Action     = Log{}
	_ agent.Action     = Sleep{}
	_ agent.Idempotent = Noop{}
	_ agent.Idempotent = Sleep{}
)
