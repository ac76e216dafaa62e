// Package application provides the agent server: the actor that owns one
// agent, admits messages into a bounded mailbox and runs them through an
// execution strategy on a single goroutine.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/domain/route"
	"github.com/felixgeelhaar/agent-runtime/domain/signal"
	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/observability"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/statemachine"
	infratelemetry "github.com/felixgeelhaar/agent-runtime/infrastructure/telemetry"
)

// Server runs one agent. The agent state, route table, action writes,
// children and lifecycle are touched only by the server's loop goroutine.
type Server struct {
	cfg       ServerConfig
	agent     *agent.Agent
	routes    *route.Table
	lifecycle *statemachine.Lifecycle
	sup       *supervisor
	ring      *infratelemetry.Ring
	emitter   telemetry.Emitter
	tracer    trace.Tracer

	mailbox   chan envelope
	steps     chan chan bool
	snapshots chan chan agent.Snapshot
	quit      chan struct{}
	done      chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc

	status  atomic.Value // agent.Status
	crashed bool         // loop only

	waitersMu sync.Mutex
	waiters   map[string]chan Reply

	stopOnce sync.Once
	mu       sync.Mutex
	reason   string
	err      error
}

// Start builds the agent described by spec and starts its server. On
// success the server is idle and accepting messages.
func Start(ctx context.Context, spec Spec, opts ...Option) (*Server, error) {
	var cfg ServerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	a, err := buildAgent(ctx, spec, &cfg)
	if err != nil {
		logging.Warn().
			Add(logging.Component("server")).
			Add(logging.Str("module", spec.Module)).
			Add(logging.ErrorField(err)).
			Msg("agent server failed to start")
		return nil, err
	}

	routes, err := route.NewTable(cfg.IDs, cfg.Routes...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		agent:     a,
		routes:    routes,
		emitter:   cfg.Emitter,
		tracer:    cfg.Tracer,
		mailbox:   make(chan envelope, cfg.MaxQueueSize),
		steps:     make(chan chan bool),
		snapshots: make(chan chan agent.Snapshot),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		waiters:   make(map[string]chan Reply),
	}
	s.sup = newSupervisor(s)
	s.status.Store(agent.StatusInitializing)

	if s.tracer == nil {
		s.tracer = observability.NoopTracer()
	}
	if cfg.Debug {
		s.ring = infratelemetry.NewRing(cfg.DebugBufferSize)
		s.emitter = telemetry.Multi{cfg.Emitter, s.ring}
	}

	s.lifecycle, err = statemachine.NewLifecycle(s.onTransition)
	if err != nil {
		return nil, err
	}

	if cfg.Registry != nil {
		if err := cfg.Registry.Register(a.ID, s); err != nil {
			s.lifecycle.Stop()
			return nil, err
		}
	}

	if err := s.lifecycle.Transition(agent.StatusIdle, "started"); err != nil {
		s.lifecycle.Stop()
		if cfg.Registry != nil {
			cfg.Registry.Unregister(a.ID, s)
		}
		return nil, err
	}

	s.runCtx, s.cancelRun = context.WithCancel(context.WithoutCancel(ctx))
	go s.loop()

	s.emit(ctx, telemetry.ServerStart, nil, nil)
	logging.Info().
		Add(logging.Component("server")).
		Add(logging.AgentID(a.ID)).
		Add(logging.Str("mode", string(cfg.Mode))).
		Add(logging.Int("actions", a.Actions.Len())).
		Msg("agent server started")

	return s, nil
}

// ID returns the agent ID.
func (s *Server) ID() string {
	return s.agent.ID
}

// Status returns the current lifecycle status.
func (s *Server) Status() agent.Status {
	return s.status.Load().(agent.Status)
}

// Done is closed when the server has terminated.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure that crashed the server, or nil.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// QueueLen returns the number of messages waiting in the mailbox.
func (s *Server) QueueLen() int {
	return len(s.mailbox)
}

// PendingReplies returns the number of calls waiting for a reply.
func (s *Server) PendingReplies() int {
	s.waitersMu.Lock()
	defer s.waitersMu.Unlock()
	return len(s.waiters)
}

// Children returns the IDs of live children.
func (s *Server) Children() []string {
	return s.sup.ids()
}

// Child returns the live child with the given ID.
func (s *Server) Child(id string) (*Server, bool) {
	s.sup.mu.RLock()
	defer s.sup.mu.RUnlock()
	c, ok := s.sup.children[id]
	return c, ok
}

// DebugEvents returns the buffered telemetry events in debug mode.
func (s *Server) DebugEvents() []telemetry.Event {
	if s.ring == nil {
		return nil
	}
	return s.ring.Events()
}

// Cast admits a message without waiting for it to run and returns its
// correlation ID.
func (s *Server) Cast(ctx context.Context, msg Message) (string, error) {
	m, corr, err := admit(msg, s.agent.Actions, s.cfg.IDs)
	if err != nil {
		return "", err
	}
	if err := s.enqueue(ctx, envelope{msg: m, correlationID: corr}); err != nil {
		return "", err
	}
	return corr, nil
}

// Call admits a message and waits up to timeout for its reply. A
// non-positive timeout uses the configured call timeout. On timeout the
// message still runs; only the waiter is discarded. The returned error is
// the reply's Err when the message ran.
func (s *Server) Call(ctx context.Context, msg Message, timeout time.Duration) (Reply, error) {
	if timeout <= 0 {
		timeout = s.cfg.CallTimeout
	}

	m, corr, err := admit(msg, s.agent.Actions, s.cfg.IDs)
	if err != nil {
		return Reply{}, err
	}

	ch := make(chan Reply, 1)
	if err := s.addWaiter(corr, ch); err != nil {
		return Reply{}, err
	}
	defer s.removeWaiter(corr, ch)

	if err := s.enqueue(ctx, envelope{msg: m, correlationID: corr, reply: ch}); err != nil {
		return Reply{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r, r.Err
	case <-timer.C:
		return Reply{CorrelationID: corr}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case <-ctx.Done():
		return Reply{CorrelationID: corr}, ctx.Err()
	case <-s.done:
		select {
		case r := <-ch:
			return r, r.Err
		default:
			return Reply{CorrelationID: corr}, ErrServerStopped
		}
	}
}

// State returns a snapshot of the agent taken on the loop.
func (s *Server) State(ctx context.Context) (agent.Snapshot, error) {
	req := make(chan agent.Snapshot, 1)
	select {
	case s.snapshots <- req:
	case <-s.done:
		return agent.Snapshot{}, ErrServerStopped
	case <-ctx.Done():
		return agent.Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-req:
		return snap, nil
	case <-s.done:
		return agent.Snapshot{}, ErrServerStopped
	case <-ctx.Done():
		return agent.Snapshot{}, ctx.Err()
	}
}

// Step processes one queued message in step mode. It reports whether a
// message was processed.
func (s *Server) Step(ctx context.Context) (bool, error) {
	if s.cfg.Mode != ModeStep {
		return false, ErrNotStepMode
	}

	reply := make(chan bool, 1)
	select {
	case s.steps <- reply:
	case <-s.done:
		return false, ErrServerStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case ok := <-reply:
		return ok, nil
	case <-s.done:
		select {
		case ok := <-reply:
			return ok, nil
		default:
			return false, ErrServerStopped
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Stop asks the server to finish its current message, stop its children
// and terminate. Queued messages are dropped. If ctx ends first the
// in-flight action's context is cancelled and ctx.Err is returned.
func (s *Server) Stop(ctx context.Context, reason string) error {
	s.stopOnce.Do(func() {
		s.setReason(reason)
		close(s.quit)
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.cancelRun()
		return ctx.Err()
	}
}

func (s *Server) enqueue(ctx context.Context, env envelope) error {
	select {
	case <-s.done:
		return ErrServerStopped
	default:
	}

	select {
	case s.mailbox <- env:
		return nil
	default:
		s.emit(ctx, telemetry.QueueOverflow,
			map[string]float64{telemetry.MeasureQueueLength: float64(len(s.mailbox))},
			map[string]any{telemetry.MetaCorrelationID: env.correlationID},
		)
		logging.Warn().
			Add(logging.Component("server")).
			Add(logging.AgentID(s.agent.ID)).
			Add(logging.CorrelationID(env.correlationID)).
			Add(logging.QueueLength(len(s.mailbox))).
			Msg("queue full, message rejected")
		return fmt.Errorf("%w: %d pending", ErrQueueFull, len(s.mailbox))
	}
}

func (s *Server) addWaiter(corr string, ch chan Reply) error {
	s.waitersMu.Lock()
	defer s.waitersMu.Unlock()
	if _, ok := s.waiters[corr]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCorrelation, corr)
	}
	s.waiters[corr] = ch
	return nil
}

func (s *Server) removeWaiter(corr string, ch chan Reply) {
	s.waitersMu.Lock()
	defer s.waitersMu.Unlock()
	if s.waiters[corr] == ch {
		delete(s.waiters, corr)
	}
}

func (s *Server) setReason(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == "" {
		s.reason = reason
	}
}

func (s *Server) stopReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// loop is the only goroutine that touches the agent.
func (s *Server) loop() {
	defer s.finish()
	defer func() {
		if r := recover(); r != nil {
			s.crash(fmt.Errorf("%w: panic: %v", ErrServerCrashed, r))
		}
	}()

	var mailbox <-chan envelope
	if s.cfg.Mode == ModeAuto {
		mailbox = s.mailbox
	}

	for {
		select {
		case <-s.quit:
			return

		case env := <-mailbox:
			if err := s.handle(env); err != nil {
				s.crash(err)
				return
			}

		case reply := <-s.steps:
			select {
			case env := <-s.mailbox:
				err := s.handle(env)
				reply <- true
				if err != nil {
					s.crash(err)
					return
				}
			default:
				reply <- false
			}

		case req := <-s.snapshots:
			req <- s.agent.Snapshot(s.cfg.Clock.Now())

		case exit := <-s.sup.exits:
			s.handleChildExit(exit)
		}
	}
}

// handle runs one message. A returned error is fatal to the server.
func (s *Server) handle(env envelope) error {
	start := s.cfg.Clock.Now()
	s.transition(agent.StatusRunning, "processing")
	defer s.settle()

	spanName := observability.SpanBatch
	meta := map[string]any{telemetry.MetaCorrelationID: env.correlationID}
	attrs := []attribute.KeyValue{
		observability.AttrAgentID.String(s.agent.ID),
		observability.AttrCorrelationID.String(env.correlationID),
	}
	if sig, ok := env.msg.(signal.Signal); ok {
		spanName = observability.SpanSignal
		meta[telemetry.MetaSignalType] = sig.Type
		attrs = append(attrs, observability.AttrSignalType.String(sig.Type))
	}

	ctx, span := observability.StartSpan(s.runCtx, s.tracer, spanName, attrs...)
	s.emit(ctx, telemetry.SignalStart,
		map[string]float64{telemetry.MeasureQueueLength: float64(len(s.mailbox))},
		cloneMeta(meta),
	)

	batch, err := s.resolve(env)
	if err != nil {
		observability.EndSpan(span, err)
		s.emit(ctx, telemetry.RoutingError, nil, withError(cloneMeta(meta), err))
		logging.Warn().
			Add(logging.Component("server")).
			Add(logging.AgentID(s.agent.ID)).
			Add(logging.CorrelationID(env.correlationID)).
			Add(logging.ErrorField(err)).
			Msg("routing failed")
		s.deliver(env, Reply{CorrelationID: env.correlationID, Err: err})
		return nil
	}
	span.SetAttributes(observability.AttrBatchSize.Int(len(batch)))

	state, directives := s.cfg.Strategy.Execute(ctx, s.agent, batch, s.hooks(env.correlationID))
	s.agent.State = state
	directives = append(directives, s.applyControl(ctx, directives)...)

	if s.cfg.ValidateOnBatch && !s.agent.Schema.IsEmpty() {
		validated, err := s.cfg.Validator.Validate(s.agent.Schema, s.agent.State)
		if err != nil {
			observability.EndSpan(span, err)
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		s.agent.State = validated
	}

	s.saveCheckpoint(ctx)

	var errs []error
	for _, d := range directives {
		if e, ok := d.(agent.Error); ok {
			errs = append(errs, e)
		}
	}
	reply := Reply{
		CorrelationID: env.correlationID,
		State:         agent.CloneState(s.agent.State),
		Directives:    directives,
		Err:           errors.Join(errs...),
	}

	observability.EndSpan(span, reply.Err)
	s.emit(ctx, telemetry.SignalStop,
		map[string]float64{
			telemetry.MeasureDuration:     float64(s.cfg.Clock.Now().Sub(start).Milliseconds()),
			telemetry.MeasureInstructions: float64(len(batch)),
			telemetry.MeasureErrors:       float64(len(errs)),
		},
		cloneMeta(meta),
	)

	s.deliver(env, reply)
	return nil
}

// resolve turns a queued message into a batch.
func (s *Server) resolve(env envelope) ([]agent.Instruction, error) {
	switch m := env.msg.(type) {
	case signal.Signal:
		if s.agent.Thread != nil {
			s.agent.Thread.RecordMessage(m.ID, m.Type, env.correlationID)
		}
		return s.routes.Resolve(m)
	case agent.Instruction:
		return []agent.Instruction{m}, nil
	case agent.Batch:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedMessage, env.msg)
	}
}

func (s *Server) deliver(env envelope, r Reply) {
	if env.reply == nil {
		return
	}
	select {
	case env.reply <- r:
	default:
	}
}

// settle returns to idle once there is nothing left to drain.
func (s *Server) settle() {
	if s.crashed {
		return
	}
	if s.cfg.Mode == ModeStep || len(s.mailbox) == 0 {
		s.transition(agent.StatusIdle, "drained")
	}
}

// hooks records thread entries, spans and telemetry around each instruction.
func (s *Server) hooks(corr string) Hooks {
	var started time.Time
	return Hooks{
		Before: func(ctx context.Context, inst agent.Instruction) context.Context {
			started = s.cfg.Clock.Now()
			if s.agent.Thread != nil {
				s.agent.Thread.RecordInstructionStart(inst.ID, inst.ActionName(), corr)
			}
			s.emit(ctx, telemetry.InstructionStart, nil, instructionMeta(inst, corr))
			ctx, _ = observability.StartSpan(ctx, s.tracer, observability.SpanInstruction,
				observability.AttrAction.String(inst.ActionName()),
				observability.AttrInstructionID.String(inst.ID),
			)
			return ctx
		},
		After: func(ctx context.Context, inst agent.Instruction, err error) {
			observability.EndSpan(trace.SpanFromContext(ctx), err)
			if s.agent.Thread != nil {
				s.agent.Thread.RecordInstructionEnd(inst.ID, inst.ActionName(), corr, err)
			}

			elapsed := s.cfg.Clock.Now().Sub(started)
			meta := instructionMeta(inst, corr)
			if err != nil {
				meta[telemetry.MetaStatus] = "error"
				s.emit(ctx, telemetry.InstructionFailed, nil, withError(cloneMeta(meta), err))
				logging.Warn().
					Add(logging.Component("server")).
					Add(logging.AgentID(s.agent.ID)).
					Add(logging.Action(inst.ActionName())).
					Add(logging.InstructionID(inst.ID)).
					Add(logging.CorrelationID(corr)).
					Add(logging.ErrorField(err)).
					Msg("instruction failed")
			} else {
				meta[telemetry.MetaStatus] = "ok"
			}
			s.emit(ctx, telemetry.InstructionStop,
				map[string]float64{telemetry.MeasureDuration: float64(elapsed.Milliseconds())},
				meta,
			)
		},
	}
}

// applyControl acts on the non-state directives of a batch in order and
// returns an Error directive for each one that could not be applied.
func (s *Server) applyControl(ctx context.Context, directives []agent.Directive) []agent.Directive {
	var failed []agent.Directive
	for _, d := range directives {
		if err := s.applyDirective(ctx, d); err != nil {
			logging.Warn().
				Add(logging.Component("server")).
				Add(logging.AgentID(s.agent.ID)).
				Add(logging.Str("directive", string(d.Kind()))).
				Add(logging.ErrorField(err)).
				Msg("directive failed")
			failed = append(failed, agent.Error{
				Err:     err,
				Context: map[string]any{"directive": string(d.Kind())},
			})
		}
	}
	return failed
}

func (s *Server) applyDirective(ctx context.Context, d agent.Directive) error {
	switch d := d.(type) {
	case agent.EnqueueAction:
		return s.enqueueSelf(ctx, d)

	case agent.RegisterAction:
		if d.Action == nil {
			return agent.ErrMissingAction
		}
		s.agent.Actions.Add(d.Action)
		return nil

	case agent.DeregisterAction:
		if d.Action == nil {
			return agent.ErrMissingAction
		}
		if d.Action.Name() == d.Source {
			return fmt.Errorf("%w: %s", agent.ErrCannotDeregisterSelf, d.Source)
		}
		s.agent.Actions.Remove(d.Action.Name())
		return nil

	case agent.Spawn:
		_, err := s.sup.spawn(ctx, d.Module, d.Args)
		return err

	case agent.Kill:
		return s.sup.kill(ctx, d.ID)

	case agent.AddRoute:
		return s.routes.Add(route.Route{Path: d.Path, Target: d.Target})

	case agent.RemoveRoute:
		s.routes.Remove(d.Path)
		return nil

	default:
		// State directives were applied by the strategy; Error
		// directives only feed the reply.
		return nil
	}
}

// enqueueSelf queues follow-up work on this server's own mailbox.
func (s *Server) enqueueSelf(ctx context.Context, d agent.EnqueueAction) error {
	inst := agent.Instruction{
		ID:      s.cfg.IDs.NewID(),
		Action:  d.Action,
		Params:  d.Params,
		Context: d.Context,
	}
	if err := inst.Validate(s.agent.Actions); err != nil {
		return err
	}
	return s.enqueue(ctx, envelope{msg: inst, correlationID: inst.ID})
}

func (s *Server) handleChildExit(exit ChildExit) {
	s.sup.forget(exit.ID)

	ev := logging.Info()
	if exit.Err != nil {
		ev = logging.Warn().Add(logging.ErrorField(exit.Err))
	}
	ev.Add(logging.Component("supervisor")).
		Add(logging.AgentID(s.agent.ID)).
		Add(logging.ChildID(exit.ID)).
		Add(logging.Reason(exit.Reason)).
		Msg("child exited")

	meta := map[string]any{
		telemetry.MetaChildID: exit.ID,
		telemetry.MetaReason:  exit.Reason,
	}
	if exit.Err != nil {
		meta = withError(meta, exit.Err)
	}
	s.emit(s.runCtx, telemetry.ChildExit, nil, meta)

	if s.cfg.Monitor != nil {
		select {
		case s.cfg.Monitor <- exit:
		default:
			logging.Warn().
				Add(logging.Component("supervisor")).
				Add(logging.ChildID(exit.ID)).
				Msg("monitor channel full, child exit dropped")
		}
	}
}

// transition moves the lifecycle, logging illegal moves instead of failing.
func (s *Server) transition(to agent.Status, reason string) {
	if err := s.lifecycle.Transition(to, reason); err != nil {
		logging.Error().
			Add(logging.Component("server")).
			Add(logging.AgentID(s.agent.ID)).
			Add(logging.ErrorField(err)).
			Msg("status transition rejected")
	}
}

// onTransition runs inside the lifecycle machine on every status change.
func (s *Server) onTransition(from, to agent.Status, reason string) {
	s.agent.Status = to
	s.status.Store(to)

	logging.Debug().
		Add(logging.Component("server")).
		Add(logging.AgentID(s.agent.ID)).
		Add(logging.FromStatus(from)).
		Add(logging.ToStatus(to)).
		Add(logging.Reason(reason)).
		Msg("status changed")

	s.emit(context.Background(), telemetry.ServerStatus, nil, map[string]any{
		telemetry.MetaStatus: string(to),
		telemetry.MetaReason: reason,
	})
}

// crash records a fatal failure and moves the server to error.
func (s *Server) crash(err error) {
	s.crashed = true
	s.mu.Lock()
	if !errors.Is(err, ErrServerCrashed) {
		err = fmt.Errorf("%w: %w", ErrServerCrashed, err)
	}
	s.err = err
	s.mu.Unlock()
	s.setReason("crash")

	if s.lifecycle.CanTransition(agent.StatusError) {
		s.transition(agent.StatusError, err.Error())
	}

	s.emit(s.runCtx, telemetry.ServerCrash, nil, withError(nil, err))
	logging.Error().
		Add(logging.Component("server")).
		Add(logging.AgentID(s.agent.ID)).
		Add(logging.ErrorField(err)).
		Msg("agent server crashed")
}

// finish shuts the server down. It runs once, on the loop goroutine.
func (s *Server) finish() {
	reason := s.stopReason()
	if reason == "" {
		reason = "stopped"
	}

	shutdownCtx := context.WithoutCancel(s.runCtx)
	_ = s.sup.stopAll(shutdownCtx, "parent "+reason)

	if !s.crashed {
		s.saveCheckpoint(shutdownCtx)
	}

	s.transition(agent.StatusStopped, reason)
	s.lifecycle.Stop()

	if s.cfg.Registry != nil {
		s.cfg.Registry.Unregister(s.agent.ID, s)
	}

	s.emit(shutdownCtx, telemetry.ServerStop, nil, map[string]any{telemetry.MetaReason: reason})
	logging.Info().
		Add(logging.Component("server")).
		Add(logging.AgentID(s.agent.ID)).
		Add(logging.Reason(reason)).
		Msg("agent server stopped")

	s.cancelRun()
	close(s.done)
}

// saveCheckpoint writes the agent to the checkpoint store. Failures are
// reported and otherwise ignored.
func (s *Server) saveCheckpoint(ctx context.Context) {
	if s.cfg.Store == nil {
		return
	}

	cp := checkpoint.Checkpoint{
		AgentID: s.agent.ID,
		State:   s.agent.State,
		Status:  string(s.agent.Status),
		Actions: s.agent.Actions.Names(),
		SavedAt: s.cfg.Clock.Now(),
	}
	if s.agent.Thread != nil {
		cp.ThreadLen = s.agent.Thread.Len()
	}

	err := func() error {
		data, err := cp.Encode()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CallTimeout)
		defer cancel()
		return s.cfg.Store.Put(ctx, checkpoint.Key(s.cfg.CheckpointPrefix, s.agent.ID), data,
			checkpoint.PutOptions{TTL: s.cfg.CheckpointTTL})
	}()
	if err != nil {
		s.emit(ctx, telemetry.CheckpointFailed, nil, withError(nil, err))
		logging.Warn().
			Add(logging.Component("server")).
			Add(logging.AgentID(s.agent.ID)).
			Add(logging.ErrorField(err)).
			Msg("checkpoint failed")
	}
}

// emit sends a telemetry event tagged with the instance and agent IDs.
func (s *Server) emit(ctx context.Context, name string, measurements map[string]float64, meta map[string]any) {
	if meta == nil {
		meta = make(map[string]any, 2)
	}
	meta[telemetry.MetaInstanceID] = s.cfg.InstanceID
	meta[telemetry.MetaAgentID] = s.agent.ID

	telemetry.Safe(ctx, s.emitter, telemetry.Event{
		Name:         name,
		Measurements: measurements,
		Metadata:     meta,
		At:           s.cfg.Clock.Now(),
	})
}

// childOptions returns the collaborators and settings a spawned child
// inherits. Children always run in auto mode and start with no routes.
func (s *Server) childOptions() []Option {
	parent := s.cfg
	return []Option{func(c *ServerConfig) {
		*c = ServerConfig{
			InstanceID:       parent.InstanceID,
			MaxQueueSize:     parent.MaxQueueSize,
			Mode:             ModeAuto,
			Strategy:         parent.Strategy,
			Executor:         parent.Executor,
			Validator:        parent.Validator,
			CallTimeout:      parent.CallTimeout,
			ShutdownTimeout:  parent.ShutdownTimeout,
			Thread:           parent.Thread,
			ValidateOnBatch:  parent.ValidateOnBatch,
			Actions:          parent.Actions,
			Registry:         parent.Registry,
			Modules:          parent.Modules,
			Store:            parent.Store,
			CheckpointPrefix: parent.CheckpointPrefix,
			CheckpointTTL:    parent.CheckpointTTL,
			RestoreOnStart:   parent.RestoreOnStart,
			Emitter:          parent.Emitter,
			Tracer:           parent.Tracer,
			Clock:            parent.Clock,
			IDs:              parent.IDs,
		}
	}}
}

func instructionMeta(inst agent.Instruction, corr string) map[string]any {
	return map[string]any{
		telemetry.MetaCorrelationID: corr,
		telemetry.MetaAction:        inst.ActionName(),
		telemetry.MetaInstructionID: inst.ID,
	}
}

func cloneMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func withError(m map[string]any, err error) map[string]any {
	if m == nil {
		m = make(map[string]any, 3)
	}
	m[telemetry.MetaError] = err.Error()
	return m
}
