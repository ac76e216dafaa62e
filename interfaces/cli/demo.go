package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/agent-runtime/application"
	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/route"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/actions"
)

// counterModule is the module run by the run command.
const counterModule = "counter"

var counterSchema = agent.Schema{
	Fields: []agent.Field{
		{Name: "count", Type: agent.TypeInt, Default: 0},
	},
}

// incrementAction adds params["by"] (default 1) to the count.
var incrementAction = agent.NewAction("increment", func(_ context.Context, params, actx map[string]any) (agent.Result, error) {
	state, _ := actx["state"].(map[string]any)
	n, err := toInt(state["count"], 0)
	if err != nil {
		return agent.Result{}, err
	}
	by, err := toInt(params["by"], 1)
	if err != nil {
		return agent.Result{}, fmt.Errorf("%w: by: %w", agent.ErrInvalidInput, err)
	}
	return agent.Result{State: map[string]any{"count": n + by}}, nil
})

// resetAction sets the count back to zero.
var resetAction = agent.NewAction("reset", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
	return agent.Result{Directives: []agent.Directive{
		agent.SetState{Patch: map[string]any{"count": 0}},
	}}, nil
})

func counterModules() *application.Modules {
	m := application.NewModules()
	m.MustRegister(counterModule, func(id string, initial map[string]any) (*agent.Agent, error) {
		return agent.New(id, initial, incrementAction, resetAction).WithSchema(counterSchema), nil
	})
	return m
}

func counterRoutes() []route.Route {
	return []route.Route{
		{Path: "counter.increment", Target: agent.NewInstruction("", incrementAction, nil)},
		{Path: "counter.reset", Target: agent.NewInstruction("", resetAction, nil)},
		{Path: "counter.*", Target: agent.NewInstruction("", actions.Log{}, map[string]any{
			"message": "counter signal received",
			"level":   "debug",
		})},
	}
}

func toInt(v any, def int) (int, error) {
	switch n := v.(type) {
	case nil:
		return def, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
