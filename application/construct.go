package application

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/domain/thread"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/actions"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
)

// Spec describes the agent a server runs. Exactly one of Agent or Module
// must be set. The server runs a private copy of Agent; later writes to
// the caller's agent are not seen by the server and vice versa.
type Spec struct {
	// Agent is an already built agent.
	Agent *agent.Agent

	// Module names a factory in the module registry.
	Module string

	// ID is passed to the factory. Generated when empty.
	ID string

	// InitialState is passed to the factory.
	InitialState map[string]any

	// Actions are registered on the agent in addition to the defaults.
	Actions []agent.Action
}

// buildAgent resolves the spec into a validated agent ready to run.
func buildAgent(ctx context.Context, spec Spec, cfg *ServerConfig) (*agent.Agent, error) {
	a, err := resolveAgent(spec, cfg)
	if err != nil {
		return nil, err
	}

	set := agent.NewActionSet(actions.Defaults()...)
	set.Add(cfg.Actions...)
	set.Add(spec.Actions...)
	if a.Actions != nil {
		set.Add(a.Actions.List()...)
	}
	a.Actions = set

	if cfg.Store != nil && cfg.RestoreOnStart {
		if err := restoreAgent(ctx, a, cfg); err != nil {
			return nil, err
		}
	}

	if !a.Schema.IsEmpty() {
		state, err := cfg.Validator.Validate(a.Schema, a.State)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		a.State = state
	}

	if cfg.Thread && a.Thread == nil {
		a.Thread = thread.New(a.ID, thread.WithClock(cfg.Clock), thread.WithIDGenerator(cfg.IDs))
	}
	a.Status = agent.StatusInitializing
	return a, nil
}

func resolveAgent(spec Spec, cfg *ServerConfig) (*agent.Agent, error) {
	if spec.Agent != nil {
		if !spec.Agent.Valid() {
			return nil, fmt.Errorf("%w: agent has no id", ErrInvalidAgent)
		}
		return spec.Agent.Clone(), nil
	}
	if spec.Module == "" {
		return nil, fmt.Errorf("%w: spec has neither agent nor module", ErrInvalidAgent)
	}

	factory, ok := cfg.Modules.Lookup(spec.Module)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleLoadFailed, spec.Module)
	}

	id := spec.ID
	if id == "" {
		id = cfg.IDs.NewID()
	}

	a, err := callFactory(factory, id, maps.Clone(spec.InitialState))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAgentCreationFailed, spec.Module, err)
	}
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAgentReturn, spec.Module)
	}
	a = a.Clone()
	if a.State == nil {
		a.State = make(map[string]any)
	}
	return a, nil
}

// callFactory runs a module factory and converts a panic into an error.
func callFactory(f agent.Factory, id string, initial map[string]any) (a *agent.Agent, err error) {
	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()
	return f(id, initial)
}

// restoreAgent replaces the agent state with the latest checkpoint.
// A missing checkpoint is a fresh start.
func restoreAgent(ctx context.Context, a *agent.Agent, cfg *ServerConfig) error {
	key := checkpoint.Key(cfg.CheckpointPrefix, a.ID)
	data, err := cfg.Store.Fetch(ctx, key)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore checkpoint %s: %w", key, err)
	}

	cp, err := checkpoint.Decode(data)
	if err != nil {
		return fmt.Errorf("restore checkpoint %s: %w", key, err)
	}
	if cp.AgentID != a.ID {
		return fmt.Errorf("restore checkpoint %s: %w: agent id %s", key, checkpoint.ErrCorrupt, cp.AgentID)
	}

	a.State = cp.State
	logging.Info().
		Add(logging.Component("server")).
		Add(logging.AgentID(a.ID)).
		Add(logging.Str("saved_at", cp.SavedAt.String())).
		Msg("restored agent from checkpoint")
	return nil
}
