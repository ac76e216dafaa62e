package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
	"github.com/felixgeelhaar/agent-runtime/domain/route"
	"github.com/felixgeelhaar/agent-runtime/domain/signal"
	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
	"github.com/felixgeelhaar/agent-runtime/domain/thread"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/actions"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage/memory"
)

func count(state map[string]any) int {
	switch n := state["count"].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

var increment = agent.NewAction("increment", func(_ context.Context, params, actx map[string]any) (agent.Result, error) {
	state, _ := actx["state"].(map[string]any)
	by := 1
	if v, ok := params["by"].(int); ok {
		by = v
	}
	return agent.Result{State: map[string]any{"count": count(state) + by}}, nil
})

var errBoom = errors.New("boom")

var fail = agent.NewAction("fail", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
	return agent.Result{}, errBoom
})

// mark records params["tag"] under state.marks.
var mark = agent.NewAction("mark", func(_ context.Context, params, _ map[string]any) (agent.Result, error) {
	tag, _ := params["tag"].(string)
	return agent.Result{Directives: []agent.Directive{
		agent.SetPath{Path: []string{"marks", tag}, Value: true},
	}}, nil
})

// record appends params["tag"] to state.log.
var record = agent.NewAction("record", func(_ context.Context, params, actx map[string]any) (agent.Result, error) {
	state, _ := actx["state"].(map[string]any)
	log, _ := state["log"].([]any)
	return agent.Result{State: map[string]any{"log": append(log, params["tag"])}}, nil
})

// blocker waits until release is closed, then sets done.
func blocker(release <-chan struct{}) agent.Action {
	return agent.NewAction("block", func(ctx context.Context, _, _ map[string]any) (agent.Result, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return agent.Result{}, ctx.Err()
		}
		return agent.Result{State: map[string]any{"done": true}}, nil
	})
}

func startServer(t *testing.T, a *agent.Agent, opts ...Option) *Server {
	t.Helper()

	opts = append([]Option{WithIDGenerator(ident.NewSequence("id-"))}, opts...)
	s, err := Start(context.Background(), Spec{Agent: a}, opts...)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx, "test done")
	})
	return s
}

func newCounter() *agent.Agent {
	return agent.New("counter", map[string]any{"count": 0}, increment, fail, mark, record)
}

func state(t *testing.T, s *Server) agent.Snapshot {
	t.Helper()
	snap, err := s.State(context.Background())
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	return snap
}

func TestStart_Idle(t *testing.T) {
	t.Parallel()

	s := startServer(t, newCounter())

	if got := s.Status(); got != agent.StatusIdle {
		t.Errorf("Status() = %v, want %v", got, agent.StatusIdle)
	}
	if s.ID() != "counter" {
		t.Errorf("ID() = %q, want counter", s.ID())
	}

	snap := state(t, s)
	for _, name := range []string{actions.NameNoop, actions.NameLog, actions.NameSleep, "increment"} {
		found := false
		for _, n := range snap.Actions {
			if n == name {
				found = true
			}
		}
		if !found {
			t.Errorf("Actions = %v, missing %s", snap.Actions, name)
		}
	}
}

func TestServer_SingleWriter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter())

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst := agent.NewInstruction("", increment, nil)
			if i%2 == 0 {
				_, err := s.Cast(ctx, inst)
				errs <- err
				return
			}
			_, err := s.Call(ctx, inst, 5*time.Second)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("send error = %v", err)
		}
	}

	// FIFO: the flush reply comes after every earlier message ran.
	reply, err := s.Call(ctx, agent.NewInstruction("", actions.Noop{}, nil), 5*time.Second)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got := count(reply.State); got != n {
		t.Errorf("count = %d, want %d", got, n)
	}
}

func TestServer_SignalOrderInThread(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter(),
		WithThread(true),
		WithRoutes(route.Route{Path: "test.*", Target: agent.NewInstruction("", actions.Noop{}, nil)}),
	)

	for _, typ := range []string{"test.s1", "test.s2", "test.s3"} {
		if _, err := s.Cast(ctx, signal.MustNew(typ, nil)); err != nil {
			t.Fatalf("Cast(%s) error = %v", typ, err)
		}
	}
	if _, err := s.Call(ctx, agent.NewInstruction("", actions.Noop{}, nil), 0); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	var got []string
	for _, e := range state(t, s).Thread {
		if e.Kind == thread.KindMessage {
			got = append(got, e.Payload["type"].(string))
		}
	}
	want := []string{"test.s1", "test.s2", "test.s3"}
	if len(got) != len(want) {
		t.Fatalf("message entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestServer_Backpressure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter(), WithMode(ModeStep), WithMaxQueueSize(3))

	inst := agent.NewInstruction("", increment, nil)
	for i := range 3 {
		if _, err := s.Cast(ctx, inst); err != nil {
			t.Fatalf("Cast(%d) error = %v", i, err)
		}
	}
	if _, err := s.Cast(ctx, inst); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Cast() over capacity error = %v, want ErrQueueFull", err)
	}
	if got := s.QueueLen(); got != 3 {
		t.Errorf("QueueLen() = %d, want 3", got)
	}

	ok, err := s.Step(ctx)
	if err != nil || !ok {
		t.Fatalf("Step() = %v, %v, want true, nil", ok, err)
	}
	if _, err := s.Cast(ctx, inst); err != nil {
		t.Fatalf("Cast() after Step error = %v", err)
	}
	if _, err := s.Cast(ctx, inst); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Cast() error = %v, want ErrQueueFull", err)
	}

	for range 3 {
		if _, err := s.Step(ctx); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
	if got := count(state(t, s).State); got != 4 {
		t.Errorf("count = %d, want 4", got)
	}
}

func TestServer_StepMode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter(), WithMode(ModeStep))

	ok, err := s.Step(ctx)
	if err != nil || ok {
		t.Fatalf("Step() on empty queue = %v, %v, want false, nil", ok, err)
	}

	if _, err := s.Cast(ctx, agent.NewInstruction("", increment, nil)); err != nil {
		t.Fatalf("Cast() error = %v", err)
	}
	if got := count(state(t, s).State); got != 0 {
		t.Errorf("count before Step = %d, want 0", got)
	}
	if _, err := s.Step(ctx); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if got := count(state(t, s).State); got != 1 {
		t.Errorf("count after Step = %d, want 1", got)
	}
	if got := s.Status(); got != agent.StatusIdle {
		t.Errorf("Status() = %v, want idle", got)
	}

	auto := startServer(t, agent.New("auto", nil))
	if _, err := auto.Step(ctx); !errors.Is(err, ErrNotStepMode) {
		t.Errorf("Step() in auto mode error = %v, want ErrNotStepMode", err)
	}
}

func TestServer_Routing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter(), WithRoutes(
		route.Route{Path: "a.b", Target: agent.NewInstruction("", record, map[string]any{"tag": "ab"})},
		route.Route{Path: "a.*", Target: agent.NewInstruction("", record, map[string]any{"tag": "astar"})},
	))

	tests := []struct {
		typ     string
		want    []string
		wantErr error
	}{
		{typ: "a.b", want: []string{"ab", "astar"}},
		{typ: "a.c", want: []string{"astar"}},
		{typ: "z", wantErr: route.ErrNoRoute},
	}

	for _, tt := range tests {
		reply, err := s.Call(ctx, signal.MustNew(tt.typ, nil), 0)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Call(%s) error = %v, want %v", tt.typ, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Call(%s) error = %v", tt.typ, err)
		}

		log, _ := reply.State["log"].([]any)
		got := log[len(log)-len(tt.want):]
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("Call(%s) log = %v, want suffix %v", tt.typ, log, tt.want)
				break
			}
		}
	}

	if got := s.Status(); got != agent.StatusIdle {
		t.Errorf("Status() after routing error = %v, want idle", got)
	}
}

func TestServer_SignalDataMergedIntoParams(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter(), WithRoutes(
		route.Route{Path: "counter.add", Target: agent.NewInstruction("", increment, map[string]any{"by": 1})},
	))

	reply, err := s.Call(ctx, signal.MustNew("counter.add", map[string]any{"by": 5}), 0)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got := count(reply.State); got != 5 {
		t.Errorf("count = %d, want 5", got)
	}
}

func TestServer_PartialBatch(t *testing.T) {
	t.Parallel()

	s := startServer(t, newCounter())

	batch := agent.Batch{
		agent.NewInstruction("i1", mark, map[string]any{"tag": "a"}),
		agent.NewInstruction("i2", fail, nil),
		agent.NewInstruction("i3", mark, map[string]any{"tag": "c"}),
	}
	reply, err := s.Call(context.Background(), batch, 0)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Call() error = %v, want errBoom", err)
	}
	if reply.CorrelationID != "i1" {
		t.Errorf("CorrelationID = %q, want i1", reply.CorrelationID)
	}

	kinds := make([]agent.DirectiveKind, len(reply.Directives))
	for i, d := range reply.Directives {
		kinds[i] = d.Kind()
	}
	want := []agent.DirectiveKind{agent.KindSetPath, agent.KindError, agent.KindSetPath}
	if len(kinds) != len(want) {
		t.Fatalf("directive kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("directive[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}

	marks, _ := reply.State["marks"].(map[string]any)
	if marks["a"] != true || marks["c"] != true {
		t.Errorf("marks = %v, want a and c", marks)
	}
}

func TestServer_HaltOnError(t *testing.T) {
	t.Parallel()

	s := startServer(t, newCounter(), WithStrategy(HaltOnErrorStrategy{}))

	batch := agent.Batch{
		agent.NewInstruction("", increment, nil),
		agent.NewInstruction("", fail, nil),
		agent.NewInstruction("", increment, nil),
	}
	reply, err := s.Call(context.Background(), batch, 0)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Call() error = %v, want errBoom", err)
	}
	if got := count(reply.State); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestServer_Admission(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter())
	unknown := agent.NewAction("unknown", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{}, nil
	})

	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{name: "missing action", msg: agent.Instruction{}, want: agent.ErrMissingAction},
		{name: "unregistered action", msg: agent.NewInstruction("", unknown, nil), want: agent.ErrInvalidAction},
		{name: "empty batch", msg: agent.Batch{}, want: agent.ErrEmptyBatch},
		{name: "bad batch member", msg: agent.Batch{agent.NewInstruction("", increment, nil), agent.Instruction{}}, want: agent.ErrInvalidInput},
		{name: "invalid signal", msg: signal.Signal{Type: "a..b"}, want: signal.ErrInvalidType},
		{name: "nil signal pointer", msg: (*signal.Signal)(nil), want: ErrUnsupportedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Cast(ctx, tt.msg); !errors.Is(err, tt.want) {
				t.Errorf("Cast() error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := s.QueueLen(); got != 0 {
		t.Errorf("QueueLen() = %d, want 0", got)
	}
}

func TestServer_CastReturnsCorrelation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter(), WithRoutes(
		route.Route{Path: "x", Target: agent.NewInstruction("", actions.Noop{}, nil)},
	))

	corr, err := s.Cast(ctx, signal.MustNew("x", nil, signal.WithCorrelationID("corr-1")))
	if err != nil || corr != "corr-1" {
		t.Errorf("Cast() = %q, %v, want corr-1, nil", corr, err)
	}

	corr, err = s.Cast(ctx, signal.Signal{Type: "x"})
	if err != nil || corr == "" {
		t.Errorf("Cast() without correlation = %q, %v, want generated id", corr, err)
	}
}

func TestServer_ConcurrentCallsCleanUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Call(ctx, agent.NewInstruction("", increment, nil), 5*time.Second); err != nil {
				t.Errorf("Call() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := s.PendingReplies(); got != 0 {
		t.Errorf("PendingReplies() = %d, want 0", got)
	}
}

func TestServer_CallTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	release := make(chan struct{})
	block := blocker(release)
	s := startServer(t, agent.New("slow", nil, block))

	_, err := s.Call(ctx, agent.NewInstruction("", block, nil), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Call() error = %v, want ErrTimeout", err)
	}
	if got := s.PendingReplies(); got != 0 {
		t.Errorf("PendingReplies() after timeout = %d, want 0", got)
	}

	close(release)
	reply, err := s.Call(ctx, agent.NewInstruction("", actions.Noop{}, nil), 5*time.Second)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if reply.State["done"] != true {
		t.Errorf("timed out message did not run: state = %v", reply.State)
	}
}

func TestServer_DuplicateCorrelation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	release := make(chan struct{})
	block := blocker(release)
	s := startServer(t, agent.New("dup", nil, block))

	first := make(chan error, 1)
	go func() {
		_, err := s.Call(ctx, agent.NewInstruction("same", block, nil), 5*time.Second)
		first <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for s.PendingReplies() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first call never registered")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := s.Call(ctx, agent.NewInstruction("same", block, nil), time.Second)
	if !errors.Is(err, ErrDuplicateCorrelation) {
		t.Errorf("Call() error = %v, want ErrDuplicateCorrelation", err)
	}

	close(release)
	if err := <-first; err != nil {
		t.Errorf("first Call() error = %v", err)
	}
}

func TestServer_Directives(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	enqueue := agent.NewAction("enqueue", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{
			agent.EnqueueAction{Action: increment, Params: map[string]any{"by": 10}},
		}}, nil
	})
	selfRemove := agent.NewAction("self_remove", func(_ context.Context, _, _ map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{
			agent.DeregisterAction{Action: agent.NewAction("self_remove", nil)},
		}}, nil
	})
	removeFail := agent.NewAction("remove_fail", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{agent.DeregisterAction{Action: fail}}}, nil
	})
	addRoute := agent.NewAction("add_route", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{
			agent.AddRoute{Path: "late.route", Target: agent.NewInstruction("", increment, nil)},
		}}, nil
	})
	killMissing := agent.NewAction("kill_missing", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{Directives: []agent.Directive{agent.Kill{ID: "nobody"}}}, nil
	})

	a := newCounter()
	a.Actions.Add(enqueue, selfRemove, removeFail, addRoute, killMissing)
	s := startServer(t, a)

	t.Run("enqueue", func(t *testing.T) {
		if _, err := s.Call(ctx, agent.NewInstruction("", enqueue, nil), 0); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		reply, err := s.Call(ctx, agent.NewInstruction("", actions.Noop{}, nil), 0)
		if err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		if got := count(reply.State); got != 10 {
			t.Errorf("count = %d, want 10", got)
		}
	})

	t.Run("deregister self", func(t *testing.T) {
		_, err := s.Call(ctx, agent.NewInstruction("", selfRemove, nil), 0)
		if !errors.Is(err, agent.ErrCannotDeregisterSelf) {
			t.Errorf("Call() error = %v, want ErrCannotDeregisterSelf", err)
		}
		if _, err := s.Cast(ctx, agent.NewInstruction("", selfRemove, nil)); err != nil {
			t.Errorf("self_remove was deregistered: %v", err)
		}
	})

	t.Run("deregister other", func(t *testing.T) {
		if _, err := s.Call(ctx, agent.NewInstruction("", removeFail, nil), 0); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		if _, err := s.Cast(ctx, agent.NewInstruction("", fail, nil)); !errors.Is(err, agent.ErrInvalidAction) {
			t.Errorf("Cast(fail) error = %v, want ErrInvalidAction", err)
		}
	})

	t.Run("add route", func(t *testing.T) {
		if _, err := s.Call(ctx, signal.MustNew("late.route", nil), 0); !errors.Is(err, route.ErrNoRoute) {
			t.Fatalf("Call() before AddRoute error = %v, want ErrNoRoute", err)
		}
		if _, err := s.Call(ctx, agent.NewInstruction("", addRoute, nil), 0); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
		if _, err := s.Call(ctx, signal.MustNew("late.route", nil), 0); err != nil {
			t.Errorf("Call() after AddRoute error = %v", err)
		}
	})

	t.Run("kill unknown child", func(t *testing.T) {
		_, err := s.Call(ctx, agent.NewInstruction("", killMissing, nil), 0)
		if !errors.Is(err, ErrChildNotFound) {
			t.Errorf("Call() error = %v, want ErrChildNotFound", err)
		}
	})
}

func TestServer_Stop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRegistry()
	s, err := Start(ctx, Spec{Agent: newCounter()}, WithRegistry(reg))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, ok := reg.Lookup("counter"); !ok {
		t.Fatal("server not registered")
	}

	if err := s.Stop(ctx, "shutdown"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	<-s.Done()

	if got := s.Status(); got != agent.StatusStopped {
		t.Errorf("Status() = %v, want stopped", got)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
	if _, ok := reg.Lookup("counter"); ok {
		t.Error("server still registered after stop")
	}
	if _, err := s.Cast(ctx, agent.NewInstruction("", increment, nil)); !errors.Is(err, ErrServerStopped) {
		t.Errorf("Cast() after stop error = %v, want ErrServerStopped", err)
	}
	if _, err := s.State(ctx); !errors.Is(err, ErrServerStopped) {
		t.Errorf("State() after stop error = %v, want ErrServerStopped", err)
	}
	if err := s.Stop(ctx, "again"); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestServer_CrashOnInvalidState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	corrupt := agent.NewAction("corrupt", func(context.Context, map[string]any, map[string]any) (agent.Result, error) {
		return agent.Result{State: map[string]any{"count": "not a number"}}, nil
	})
	a := agent.New("strict", map[string]any{"count": 0}, corrupt).WithSchema(agent.Schema{
		Fields: []agent.Field{{Name: "count", Type: agent.TypeInt, Required: true}},
	})

	s, err := Start(ctx, Spec{Agent: a}, WithValidateOnBatch(true))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := s.Call(ctx, agent.NewInstruction("", corrupt, nil), 5*time.Second); !errors.Is(err, ErrServerStopped) {
		t.Errorf("Call() error = %v, want ErrServerStopped", err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not terminate")
	}

	if err := s.Err(); !errors.Is(err, ErrServerCrashed) || !errors.Is(err, ErrInvalidState) {
		t.Errorf("Err() = %v, want ErrServerCrashed wrapping ErrInvalidState", err)
	}
	if got := s.Status(); got != agent.StatusStopped {
		t.Errorf("Status() = %v, want stopped", got)
	}
}

type panicStrategy struct{}

func (panicStrategy) Execute(context.Context, *agent.Agent, []agent.Instruction, Hooks) (map[string]any, []agent.Directive) {
	panic("strategy exploded")
}

func TestServer_CrashOnLoopPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := Start(ctx, Spec{Agent: newCounter()}, WithStrategy(panicStrategy{}))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := s.Call(ctx, agent.NewInstruction("", increment, nil), 5*time.Second); !errors.Is(err, ErrServerStopped) {
		t.Errorf("Call() error = %v, want ErrServerStopped", err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not terminate")
	}

	if err := s.Err(); !errors.Is(err, ErrServerCrashed) {
		t.Errorf("Err() = %v, want ErrServerCrashed", err)
	}
	if got := s.Status(); got != agent.StatusStopped {
		t.Errorf("Status() = %v, want stopped", got)
	}
	if n := s.PendingReplies(); n != 0 {
		t.Errorf("PendingReplies() = %d, want 0", n)
	}
}

type panicExecutor struct{}

func (panicExecutor) Execute(context.Context, agent.Action, map[string]any, map[string]any) (agent.Result, error) {
	panic("executor exploded")
}

func TestServer_ExecutorPanicBecomesError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := startServer(t, newCounter(), WithExecutor(panicExecutor{}))

	reply, err := s.Call(ctx, agent.NewInstruction("", increment, nil), 5*time.Second)
	if !errors.Is(err, agent.ErrActionPanicked) {
		t.Fatalf("Call() error = %v, want ErrActionPanicked", err)
	}
	if !errors.Is(reply.Err, agent.ErrActionPanicked) {
		t.Errorf("reply.Err = %v, want ErrActionPanicked", reply.Err)
	}

	var errDirectives int
	for _, d := range reply.Directives {
		if _, ok := d.(agent.Error); ok {
			errDirectives++
		}
	}
	if errDirectives != 1 {
		t.Errorf("Error directives = %d, want 1", errDirectives)
	}

	if got := s.Status(); got != agent.StatusIdle {
		t.Errorf("Status() = %v, want idle", got)
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
	if got := count(state(t, s).State); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestServer_OwnsPrivateAgentCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a := newCounter()
	s := startServer(t, a)

	if _, err := s.Call(ctx, agent.NewInstruction("", increment, nil), 5*time.Second); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if got := count(a.State); got != 0 {
		t.Errorf("caller state count = %d, want 0", got)
	}
	if a.Status != agent.StatusInitializing {
		t.Errorf("caller Status = %v, want initializing", a.Status)
	}

	a.State["count"] = 100
	a.Actions.Remove("increment")

	snap := state(t, s)
	if got := count(snap.State); got != 1 {
		t.Errorf("server count = %d, want 1", got)
	}
	if _, err := s.Call(ctx, agent.NewInstruction("", increment, nil), 5*time.Second); err != nil {
		t.Errorf("Call() after caller removed action: %v", err)
	}
}

func TestServer_CheckpointRestore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewCheckpointStore()

	first, err := Start(ctx, Spec{Agent: newCounter()}, WithCheckpointStore(store, "test:", 0))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for range 3 {
		if _, err := first.Call(ctx, agent.NewInstruction("", increment, nil), 0); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	if err := first.Stop(ctx, "restart"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("store.Len() = %d, want 1", store.Len())
	}

	second := startServer(t, newCounter(),
		WithCheckpointStore(store, "test:", 0),
		WithRestoreOnStart(true),
	)
	if got := count(state(t, second).State); got != 3 {
		t.Errorf("restored count = %d, want 3", got)
	}
	reply, err := second.Call(ctx, agent.NewInstruction("", increment, nil), 0)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got := count(reply.State); got != 4 {
		t.Errorf("count after restore = %d, want 4", got)
	}
}

func TestServer_DebugEvents(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	emitter := telemetry.Func(func(_ context.Context, e telemetry.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Name)
	})

	s := startServer(t, newCounter(), WithDebug(0), WithEmitter(emitter), WithInstanceID("inst-1"))
	if _, err := s.Call(context.Background(), agent.NewInstruction("", fail, nil), 0); !errors.Is(err, errBoom) {
		t.Fatalf("Call() error = %v, want errBoom", err)
	}

	names := make(map[string]bool)
	for _, e := range s.DebugEvents() {
		names[e.Name] = true
		if e.Str(telemetry.MetaInstanceID) != "inst-1" {
			t.Errorf("event %s instance_id = %q, want inst-1", e.Name, e.Str(telemetry.MetaInstanceID))
		}
	}
	for _, want := range []string{
		telemetry.ServerStart,
		telemetry.SignalStart,
		telemetry.InstructionStart,
		telemetry.InstructionFailed,
		telemetry.InstructionStop,
		telemetry.SignalStop,
	} {
		if !names[want] {
			t.Errorf("DebugEvents() missing %s", want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 {
		t.Error("configured emitter received no events")
	}

	plain := startServer(t, agent.New("plain", nil))
	if plain.DebugEvents() != nil {
		t.Error("DebugEvents() without debug mode should be nil")
	}
}
