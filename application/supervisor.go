package application

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
)

// ChildExit reports that a supervised child terminated.
type ChildExit struct {
	ID     string
	Reason string
	Err    error
}

// supervisor owns the children of one server. Spawn, kill and forget run
// on the parent's loop; IDs may be read from any goroutine.
type supervisor struct {
	parent *Server

	mu       sync.RWMutex
	children map[string]*Server

	// exits carries monitor notifications to the parent loop.
	exits chan ChildExit
}

func newSupervisor(parent *Server) *supervisor {
	return &supervisor{
		parent:   parent,
		children: make(map[string]*Server),
		exits:    make(chan ChildExit, 16),
	}
}

// spawn starts a child from a registered module. args["id"] selects the
// child ID; the remaining args become its initial state.
func (sv *supervisor) spawn(ctx context.Context, module string, args map[string]any) (*Server, error) {
	p := sv.parent

	initial := maps.Clone(args)
	id, _ := initial["id"].(string)
	delete(initial, "id")
	if id == "" {
		id = p.cfg.IDs.NewID()
	}

	sv.mu.RLock()
	_, exists := sv.children[id]
	sv.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: child %s", ErrAlreadyRegistered, id)
	}

	child, err := Start(ctx, Spec{Module: module, ID: id, InitialState: initial}, p.childOptions()...)
	if err != nil {
		return nil, err
	}

	sv.mu.Lock()
	sv.children[id] = child
	sv.mu.Unlock()

	go sv.monitor(id, child)

	logging.Info().
		Add(logging.Component("supervisor")).
		Add(logging.AgentID(p.ID())).
		Add(logging.ChildID(id)).
		Add(logging.Str("module", module)).
		Msg("child spawned")
	return child, nil
}

// monitor waits for the child to end and reports it to the parent loop.
func (sv *supervisor) monitor(id string, child *Server) {
	<-child.Done()
	exit := ChildExit{ID: id, Reason: child.stopReason(), Err: child.Err()}
	select {
	case sv.exits <- exit:
	case <-sv.parent.done:
	}
}

// kill stops a child and waits for it up to the parent's shutdown timeout.
func (sv *supervisor) kill(ctx context.Context, id string) error {
	sv.mu.Lock()
	child, ok := sv.children[id]
	delete(sv.children, id)
	sv.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrChildNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, sv.parent.cfg.ShutdownTimeout)
	defer cancel()
	return child.Stop(ctx, "killed")
}

// forget drops a child after it exited. It reports whether the child was
// still tracked.
func (sv *supervisor) forget(id string) bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	_, ok := sv.children[id]
	delete(sv.children, id)
	return ok
}

// ids returns the IDs of live children in sorted order.
func (sv *supervisor) ids() []string {
	sv.mu.RLock()
	defer sv.mu.RUnlock()

	ids := make([]string, 0, len(sv.children))
	for id := range sv.children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// stopAll stops every child concurrently.
func (sv *supervisor) stopAll(ctx context.Context, reason string) error {
	sv.mu.Lock()
	children := sv.children
	sv.children = make(map[string]*Server)
	sv.mu.Unlock()

	if len(children) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sv.parent.cfg.ShutdownTimeout)
	defer cancel()

	var g errgroup.Group
	for id, child := range children {
		g.Go(func() error {
			if err := child.Stop(ctx, reason); err != nil {
				return fmt.Errorf("stop child %s: %w", id, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().
			Add(logging.Component("supervisor")).
			Add(logging.AgentID(sv.parent.ID())).
			Add(logging.ErrorField(err)).
			Msg("children did not stop cleanly")
	}
	return err
}
