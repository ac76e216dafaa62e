package application

import (
	"context"
	"fmt"
	"maps"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

// Strategy names accepted by NewStrategy.
const (
	StrategyDirect      = "direct"
	StrategyHaltOnError = "halt_on_error"
)

// Hooks observe instruction execution. Before may return a derived
// context that is used for the instruction and passed to After.
type Hooks struct {
	Before func(ctx context.Context, inst agent.Instruction) context.Context
	After  func(ctx context.Context, inst agent.Instruction, err error)
}

func (h Hooks) before(ctx context.Context, inst agent.Instruction) context.Context {
	if h.Before == nil {
		return ctx
	}
	if next := h.Before(ctx, inst); next != nil {
		return next
	}
	return ctx
}

func (h Hooks) after(ctx context.Context, inst agent.Instruction, err error) {
	if h.After != nil {
		h.After(ctx, inst, err)
	}
}

// Strategy turns a batch of instructions into a new agent state and the
// directives the batch produced. It must not modify a and must return
// directives in execution order, contiguous per instruction. State
// directives in the returned list have already been applied to the
// returned state.
type Strategy interface {
	Execute(ctx context.Context, a *agent.Agent, batch []agent.Instruction, hooks Hooks) (map[string]any, []agent.Directive)
}

// DirectStrategy runs instructions sequentially and keeps going after a
// failed instruction. Each failure is reported as an agent.Error directive.
type DirectStrategy struct {
	Executor agent.Executor
}

// Execute implements Strategy.
func (s DirectStrategy) Execute(ctx context.Context, a *agent.Agent, batch []agent.Instruction, hooks Hooks) (map[string]any, []agent.Directive) {
	return runBatch(ctx, s.Executor, a, batch, hooks, false)
}

// HaltOnErrorStrategy runs instructions sequentially and stops the batch
// at the first failed instruction.
type HaltOnErrorStrategy struct {
	Executor agent.Executor
}

// Execute implements Strategy.
func (s HaltOnErrorStrategy) Execute(ctx context.Context, a *agent.Agent, batch []agent.Instruction, hooks Hooks) (map[string]any, []agent.Directive) {
	return runBatch(ctx, s.Executor, a, batch, hooks, true)
}

// NewStrategy returns the named strategy bound to exec.
func NewStrategy(name string, exec agent.Executor) (Strategy, error) {
	switch name {
	case "", StrategyDirect:
		return DirectStrategy{Executor: exec}, nil
	case StrategyHaltOnError:
		return HaltOnErrorStrategy{Executor: exec}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

func runBatch(ctx context.Context, exec agent.Executor, a *agent.Agent, batch []agent.Instruction, hooks Hooks, halt bool) (map[string]any, []agent.Directive) {
	if exec == nil {
		exec = agent.DirectExecutor{}
	}

	state := agent.CloneState(a.State)
	if state == nil {
		state = make(map[string]any)
	}

	var directives []agent.Directive
	for _, inst := range batch {
		ictx := hooks.before(ctx, inst)

		next, produced, err := runInstruction(ictx, exec, a.Actions, state, inst)
		hooks.after(ictx, inst, err)

		if err != nil {
			directives = append(directives, agent.Error{
				Err: err,
				Context: map[string]any{
					"instruction_id": inst.ID,
					"action":         inst.ActionName(),
				},
			})
			if halt {
				break
			}
			continue
		}

		state = next
		directives = append(directives, produced...)
	}
	return state, directives
}

// runInstruction executes one instruction against state and returns the
// updated state and the instruction's directives.
func runInstruction(ctx context.Context, exec agent.Executor, actions *agent.ActionSet, state map[string]any, inst agent.Instruction) (map[string]any, []agent.Directive, error) {
	if inst.Action == nil {
		return nil, nil, agent.ErrMissingAction
	}

	// Resolve at execution time; an earlier instruction may have
	// deregistered the action.
	action, ok := actions.Get(inst.Action.Name())
	if !ok {
		return nil, nil, &agent.InvalidActionError{Action: inst.Action.Name()}
	}

	actx := maps.Clone(inst.Context)
	if actx == nil {
		actx = make(map[string]any, 1)
	}
	actx["state"] = agent.CloneState(state)

	result, err := execute(ctx, exec, action, maps.Clone(inst.Params), actx)
	if err != nil {
		return nil, nil, err
	}

	next := agent.Merge(state, result.State)

	produced := make([]agent.Directive, 0, len(result.Directives))
	var stateDirectives []agent.Directive
	for _, d := range result.Directives {
		if d == nil {
			continue
		}
		if dr, ok := d.(agent.DeregisterAction); ok {
			dr.Source = action.Name()
			d = dr
		}
		if agent.IsStateDirective(d) {
			stateDirectives = append(stateDirectives, d)
		}
		produced = append(produced, d)
	}

	next, _ = agent.Apply(next, stateDirectives)
	return next, produced, nil
}

var (
	_ Strategy = DirectStrategy{}
	_ Strategy = HaltOnErrorStrategy{}
)

// execute runs the action through exec. A panic anywhere in the executor
// chain fails only this instruction.
func execute(ctx context.Context, exec agent.Executor, action agent.Action, params, actx map[string]any) (result agent.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = agent.Result{}
			err = fmt.Errorf("%w: %s: %v", agent.ErrActionPanicked, action.Name(), r)
		}
	}()
	return exec.Execute(ctx, action, params, actx)
}
