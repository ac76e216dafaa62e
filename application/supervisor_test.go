package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
)

func spawnAction(id string) agent.Action {
	return agent.NewAction("spawn_"+id, func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{
			agent.Spawn{Module: "counter", Args: map[string]any{"id": id, "count": 2}},
		}}, nil
	})
}

func killAction(id string) agent.Action {
	return agent.NewAction("kill_"+id, func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{agent.Kill{ID: id}}}, nil
	})
}

func waitExit(t *testing.T, ch <-chan ChildExit) ChildExit {
	t.Helper()
	select {
	case exit := <-ch:
		return exit
	case <-time.After(5 * time.Second):
		t.Fatal("no child exit reported")
		return ChildExit{}
	}
}

func TestSupervisor_SpawnAndKill(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRegistry()
	monitor := make(chan ChildExit, 4)
	spawn, kill := spawnAction("w1"), killAction("w1")

	parent := startServer(t, agent.New("parent", nil, spawn, kill),
		WithModules(testModules()),
		WithRegistry(reg),
		WithMonitor(monitor),
	)

	if _, err := parent.Call(ctx, agent.NewInstruction("", spawn, nil), 0); err != nil {
		t.Fatalf("Call(spawn) error = %v", err)
	}
	if got := parent.Children(); len(got) != 1 || got[0] != "w1" {
		t.Fatalf("Children() = %v, want [w1]", got)
	}
	if _, ok := reg.Lookup("w1"); !ok {
		t.Error("child not registered")
	}

	child, ok := parent.Child("w1")
	if !ok {
		t.Fatal("Child(w1) not found")
	}
	if got := count(state(t, child).State); got != 2 {
		t.Errorf("child count = %d, want 2", got)
	}
	if child.cfg.Mode != ModeAuto {
		t.Errorf("child mode = %s, want auto", child.cfg.Mode)
	}

	_, err := parent.Call(ctx, agent.NewInstruction("", spawn, nil), 0)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second spawn error = %v, want ErrAlreadyRegistered", err)
	}

	if _, err := parent.Call(ctx, agent.NewInstruction("", kill, nil), 0); err != nil {
		t.Fatalf("Call(kill) error = %v", err)
	}
	exit := waitExit(t, monitor)
	if exit.ID != "w1" || exit.Reason != "killed" || exit.Err != nil {
		t.Errorf("exit = %+v, want w1 killed", exit)
	}
	if got := parent.Children(); len(got) != 0 {
		t.Errorf("Children() after kill = %v, want none", got)
	}
	if got := child.Status(); got != agent.StatusStopped {
		t.Errorf("child Status() = %v, want stopped", got)
	}
}

func TestSupervisor_ChildExitOnItsOwn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	monitor := make(chan ChildExit, 4)
	spawn := spawnAction("w2")

	parent := startServer(t, agent.New("parent", nil, spawn),
		WithModules(testModules()),
		WithMonitor(monitor),
	)
	if _, err := parent.Call(ctx, agent.NewInstruction("", spawn, nil), 0); err != nil {
		t.Fatalf("Call(spawn) error = %v", err)
	}
	child, ok := parent.Child("w2")
	if !ok {
		t.Fatal("Child(w2) not found")
	}

	if err := child.Stop(ctx, "finished"); err != nil {
		t.Fatalf("child Stop() error = %v", err)
	}

	exit := waitExit(t, monitor)
	if exit.ID != "w2" || exit.Reason != "finished" {
		t.Errorf("exit = %+v, want w2 finished", exit)
	}
	if got := parent.Children(); len(got) != 0 {
		t.Errorf("Children() = %v, want none", got)
	}
	if got := parent.Status(); got != agent.StatusIdle {
		t.Errorf("parent Status() = %v, want idle", got)
	}
}

func TestSupervisor_StopStopsChildren(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	spawn := spawnAction("w3")
	parent, err := Start(ctx, Spec{Agent: agent.New("parent", nil, spawn)}, WithModules(testModules()))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := parent.Call(ctx, agent.NewInstruction("", spawn, nil), 0); err != nil {
		t.Fatalf("Call(spawn) error = %v", err)
	}
	child, ok := parent.Child("w3")
	if !ok {
		t.Fatal("Child(w3) not found")
	}

	if err := parent.Stop(ctx, "shutdown"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-child.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("child still running after parent stopped")
	}
	if got := child.stopReason(); got != "parent shutdown" {
		t.Errorf("child stop reason = %q, want %q", got, "parent shutdown")
	}
}

func TestSupervisor_SpawnUnknownModule(t *testing.T) {
	t.Parallel()

	bad := agent.NewAction("spawn_bad", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{agent.Spawn{Module: "missing"}}}, nil
	})
	parent := startServer(t, agent.New("parent", nil, bad), WithModules(testModules()))

	_, err := parent.Call(context.Background(), agent.NewInstruction("", bad, nil), 0)
	if !errors.Is(err, ErrModuleLoadFailed) {
		t.Errorf("Call() error = %v, want ErrModuleLoadFailed", err)
	}
	if got := parent.Children(); len(got) != 0 {
		t.Errorf("Children() = %v, want none", got)
	}
}
