package application

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/checkpoint"
	"github.com/felixgeelhaar/agent-runtime/domain/clock"
	"github.com/felixgeelhaar/agent-runtime/domain/config"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
	"github.com/felixgeelhaar/agent-runtime/domain/route"
	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
)

// Mode controls how a server drains its mailbox.
type Mode string

const (
	// ModeAuto processes messages as they arrive.
	ModeAuto Mode = "auto"
	// ModeStep processes one message per Step call.
	ModeStep Mode = "step"
)

// Defaults applied to zero-valued settings.
const (
	DefaultMaxQueueSize    = 10000
	DefaultCallTimeout     = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultDebugBufferSize = 256
)

// ServerConfig contains the collaborators and settings of a server.
type ServerConfig struct {
	InstanceID      string
	MaxQueueSize    int
	Mode            Mode
	Strategy        Strategy
	Executor        agent.Executor
	Validator       agent.Validator
	CallTimeout     time.Duration
	ShutdownTimeout time.Duration
	Thread          bool
	Debug           bool
	DebugBufferSize int
	ValidateOnBatch bool

	// Actions are registered in addition to the built-in defaults.
	Actions []agent.Action
	Routes  []route.Route

	Registry *Registry
	Modules  *Modules
	Monitor  chan<- ChildExit

	Store            checkpoint.Store
	CheckpointPrefix string
	CheckpointTTL    time.Duration
	RestoreOnStart   bool

	Emitter telemetry.Emitter
	Tracer  trace.Tracer
	Clock   clock.Clock
	IDs     ident.Generator

	strategyName string
}

// Option configures a server.
type Option func(*ServerConfig)

// WithInstanceID sets the process-wide instance identifier added to
// every telemetry event.
func WithInstanceID(id string) Option {
	return func(c *ServerConfig) {
		c.InstanceID = id
	}
}

// WithMaxQueueSize bounds the mailbox.
func WithMaxQueueSize(n int) Option {
	return func(c *ServerConfig) {
		c.MaxQueueSize = n
	}
}

// WithMode sets the processing mode.
func WithMode(m Mode) Option {
	return func(c *ServerConfig) {
		c.Mode = m
	}
}

// WithStrategy sets the execution strategy.
func WithStrategy(s Strategy) Option {
	return func(c *ServerConfig) {
		c.Strategy = s
	}
}

// WithExecutor sets the action executor used by the default strategy.
func WithExecutor(e agent.Executor) Option {
	return func(c *ServerConfig) {
		c.Executor = e
	}
}

// WithValidator sets the state validator.
func WithValidator(v agent.Validator) Option {
	return func(c *ServerConfig) {
		c.Validator = v
	}
}

// WithCallTimeout sets the timeout used by Call when none is given.
func WithCallTimeout(d time.Duration) Option {
	return func(c *ServerConfig) {
		c.CallTimeout = d
	}
}

// WithShutdownTimeout bounds how long stopping children may take.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *ServerConfig) {
		c.ShutdownTimeout = d
	}
}

// WithThread enables thread tracking.
func WithThread(enabled bool) Option {
	return func(c *ServerConfig) {
		c.Thread = enabled
	}
}

// WithDebug keeps the last n telemetry events in memory. n <= 0 uses
// DefaultDebugBufferSize.
func WithDebug(n int) Option {
	return func(c *ServerConfig) {
		c.Debug = true
		c.DebugBufferSize = n
	}
}

// WithValidateOnBatch validates state after every batch. A failure
// crashes the server.
func WithValidateOnBatch(enabled bool) Option {
	return func(c *ServerConfig) {
		c.ValidateOnBatch = enabled
	}
}

// WithActions registers extra actions.
func WithActions(actions ...agent.Action) Option {
	return func(c *ServerConfig) {
		c.Actions = append(c.Actions, actions...)
	}
}

// WithRoutes sets the initial route table.
func WithRoutes(routes ...route.Route) Option {
	return func(c *ServerConfig) {
		c.Routes = append(c.Routes, routes...)
	}
}

// WithRegistry sets the server registry.
func WithRegistry(r *Registry) Option {
	return func(c *ServerConfig) {
		c.Registry = r
	}
}

// WithModules sets the module registry used by Start and Spawn.
func WithModules(m *Modules) Option {
	return func(c *ServerConfig) {
		c.Modules = m
	}
}

// WithMonitor receives child exits. Sends never block; exits are dropped
// when the channel is full.
func WithMonitor(ch chan<- ChildExit) Option {
	return func(c *ServerConfig) {
		c.Monitor = ch
	}
}

// WithCheckpointStore enables checkpointing to store.
func WithCheckpointStore(store checkpoint.Store, prefix string, ttl time.Duration) Option {
	return func(c *ServerConfig) {
		c.Store = store
		c.CheckpointPrefix = prefix
		c.CheckpointTTL = ttl
	}
}

// WithRestoreOnStart restores state from the latest checkpoint.
func WithRestoreOnStart(enabled bool) Option {
	return func(c *ServerConfig) {
		c.RestoreOnStart = enabled
	}
}

// WithEmitter sets the telemetry emitter.
func WithEmitter(e telemetry.Emitter) Option {
	return func(c *ServerConfig) {
		c.Emitter = e
	}
}

// WithTracer sets the tracer used for message and instruction spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *ServerConfig) {
		c.Tracer = t
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(c *ServerConfig) {
		c.Clock = clk
	}
}

// WithIDGenerator sets the ID generator.
func WithIDGenerator(g ident.Generator) Option {
	return func(c *ServerConfig) {
		c.IDs = g
	}
}

// OptionsFromConfig maps the server and checkpoint sections of a runtime
// configuration to options. The checkpoint store itself is not created here.
func OptionsFromConfig(rc config.RuntimeConfig) ([]Option, error) {
	s := rc.Server
	opts := []Option{
		WithInstanceID(rc.InstanceID),
		WithMaxQueueSize(s.MaxQueueSize),
		WithMode(Mode(s.Mode)),
		WithCallTimeout(s.CallTimeout.Duration()),
		WithShutdownTimeout(s.ShutdownTimeout.Duration()),
		WithThread(s.Thread),
		WithValidateOnBatch(s.ValidateOnBatch),
		WithRestoreOnStart(rc.Checkpoint.RestoreOnStart),
	}
	if s.Debug {
		opts = append(opts, WithDebug(s.DebugBufferSize))
	}
	if s.Strategy != "" {
		if _, err := NewStrategy(s.Strategy, nil); err != nil {
			return nil, err
		}
		opts = append(opts, withStrategyName(s.Strategy))
	}
	return opts, nil
}

// withStrategyName defers building the named strategy until the executor
// is known.
func withStrategyName(name string) Option {
	return func(c *ServerConfig) {
		c.strategyName = name
	}
}

func (c *ServerConfig) applyDefaults() error {
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	switch c.Mode {
	case "":
		c.Mode = ModeAuto
	case ModeAuto, ModeStep:
	default:
		return fmt.Errorf("unknown mode: %s", c.Mode)
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.DebugBufferSize <= 0 {
		c.DebugBufferSize = DefaultDebugBufferSize
	}
	if c.Executor == nil {
		c.Executor = agent.DirectExecutor{}
	}
	if c.Validator == nil {
		c.Validator = agent.SchemaValidator{}
	}
	if c.Strategy == nil {
		s, err := NewStrategy(c.strategyName, c.Executor)
		if err != nil {
			return err
		}
		c.Strategy = s
	}
	if c.Emitter == nil {
		c.Emitter = telemetry.Noop{}
	}
	if c.Clock == nil {
		c.Clock = clock.System{}
	}
	if c.IDs == nil {
		c.IDs = ident.UUID{}
	}
	return nil
}
