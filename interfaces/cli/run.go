package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	agentruntime "github.com/felixgeelhaar/agent-runtime"
	"github.com/felixgeelhaar/agent-runtime/application"
	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	domainconfig "github.com/felixgeelhaar/agent-runtime/domain/config"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
	"github.com/felixgeelhaar/agent-runtime/domain/middleware"
	"github.com/felixgeelhaar/agent-runtime/domain/signal"
	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/config"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
	infmiddleware "github.com/felixgeelhaar/agent-runtime/infrastructure/middleware"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/observability"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/resilience"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/storage"
	infratelemetry "github.com/felixgeelhaar/agent-runtime/infrastructure/telemetry"
)

// runOptions holds options for the run command.
type runOptions struct {
	configPath  string
	agentID     string
	data        map[string]string
	metricsAddr string
	watch       bool
	serve       bool
	jsonOutput  bool
	signals     []string
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{data: make(map[string]string)}

	cmd := &cobra.Command{
		Use:   "run [signal-type...]",
		Short: "Run a counter agent and feed it signals",
		Long: `Start an agent server for the built-in counter module, send it one
signal per argument and print the resulting agent state.

Routes:
  counter.increment  add data "by" (default 1) to the count
  counter.reset      set the count to zero
  counter.*          log the signal

Examples:
  # Send two increments
  agentrt run counter.increment counter.increment

  # Increment by 5 using a config file with a checkpoint backend
  agentrt run -c runtime.yaml --data by=5 counter.increment

  # Keep serving metrics and reloading config until interrupted
  agentrt run -c runtime.yaml --serve --watch counter.increment`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.signals = args
			return a.runAgent(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (default: built-in defaults)")
	cmd.Flags().StringVar(&opts.agentID, "id", "counter-1", "Agent ID")
	cmd.Flags().StringToStringVar(&opts.data, "data", nil, "Signal data (key=value)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", ":9464", "Listen address for /metrics when prometheus telemetry is enabled")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the configuration file on change")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "Keep running until interrupted")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the final agent snapshot as JSON")

	return cmd
}

// runAgent wires the runtime from configuration and drives one server.
func (a *App) runAgent(ctx context.Context, opts *runOptions) error {
	cfg, err := loadConfig(opts.configPath, false)
	if err != nil {
		return err
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = ident.UUID{}.NewID()
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: a.stderr,
	})

	serverOpts, err := application.OptionsFromConfig(*cfg)
	if err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	emitter, stopMetrics, err := a.buildEmitter(cfg, opts.metricsAddr)
	if err != nil {
		return err
	}
	defer stopMetrics()

	tracing, err := observability.New(observability.FromRuntimeConfig(cfg.Name, agentruntime.Version, cfg.Telemetry.Tracing)...)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() { _ = tracing.Shutdown(context.WithoutCancel(ctx)) }()

	store, err := storage.Open(ctx, cfg.Checkpoint)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	if store != nil {
		defer func() { _ = storage.Close(store) }()
		serverOpts = append(serverOpts, application.WithCheckpointStore(store, cfg.Checkpoint.KeyPrefix, cfg.Checkpoint.TTL.Duration()))
	}

	serverOpts = append(serverOpts, application.WithExecutor(buildExecutor(cfg)))

	if opts.watch && opts.configPath != "" {
		if err := a.watchConfig(ctx, opts.configPath); err != nil {
			return err
		}
	}

	serverOpts = append(serverOpts,
		application.WithEmitter(emitter),
		application.WithTracer(tracing.Tracer()),
		application.WithModules(counterModules()),
		application.WithRoutes(counterRoutes()...),
	)

	srv, err := application.Start(ctx, application.Spec{Module: counterModule, ID: opts.agentID}, serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		_ = srv.Stop(stopCtx, "cli exit")
	}()

	if err := a.sendSignals(ctx, srv, cfg, opts); err != nil {
		return err
	}

	if opts.serve {
		select {
		case <-ctx.Done():
		case <-srv.Done():
			return srv.Err()
		}
	}

	snap, err := srv.State(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("failed to read agent state: %w", err)
	}
	return a.printSnapshot(snap, opts.jsonOutput)
}

// sendSignals delivers one signal per argument. In step mode every
// signal is queued first and then drained with Step.
func (a *App) sendSignals(ctx context.Context, srv *application.Server, cfg *domainconfig.RuntimeConfig, opts *runOptions) error {
	data := make(map[string]any, len(opts.data))
	for k, v := range opts.data {
		data[k] = v
	}

	step := application.Mode(cfg.Server.Mode) == application.ModeStep
	for _, typ := range opts.signals {
		sig, err := signal.New(typ, data, signal.WithSource("cli"))
		if err != nil {
			return err
		}

		if step {
			if _, err := srv.Cast(ctx, sig); err != nil {
				return fmt.Errorf("failed to queue %s: %w", typ, err)
			}
			continue
		}

		if _, err := srv.Call(ctx, sig, 0); err != nil {
			if errors.Is(err, application.ErrServerStopped) || errors.Is(err, application.ErrTimeout) {
				return fmt.Errorf("signal %s: %w", typ, err)
			}
			_, _ = fmt.Fprintf(a.stderr, "signal %s: %v\n", typ, err)
		}
	}

	for step {
		ok, err := srv.Step(ctx)
		if err != nil {
			return err
		}
		step = ok
	}
	return nil
}

// buildEmitter assembles the telemetry emitters enabled in cfg. The
// returned function stops the metrics endpoint.
func (a *App) buildEmitter(cfg *domainconfig.RuntimeConfig, metricsAddr string) (telemetry.Emitter, func(), error) {
	var emitters telemetry.Multi
	stop := func() {}

	if cfg.Telemetry.LogEvents {
		emitters = append(emitters, infratelemetry.NewLogEmitter(logging.Get()))
	}

	if cfg.Telemetry.Metrics {
		m, err := infratelemetry.NewMetricsEmitter(infratelemetry.DefaultMetricsConfig())
		if err != nil {
			return nil, stop, fmt.Errorf("failed to create metrics: %w", err)
		}
		emitters = append(emitters, m)
	}

	if cfg.Telemetry.Prometheus {
		p, err := infratelemetry.NewPrometheusEmitter(prometheus.NewRegistry())
		if err != nil {
			return nil, stop, fmt.Errorf("failed to create prometheus collectors: %w", err)
		}
		emitters = append(emitters, p)

		mux := http.NewServeMux()
		mux.Handle("/metrics", p.Handler())
		server := &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Warn().
					Add(logging.Component("metrics")).
					Add(logging.ErrorField(err)).
					Msg("metrics endpoint stopped")
			}
		}()
		stop = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}
	}

	if len(emitters) == 0 {
		return telemetry.Noop{}, stop, nil
	}
	return emitters, stop, nil
}

// buildExecutor layers action middleware over the resilient executor
// when it is enabled.
func buildExecutor(cfg *domainconfig.RuntimeConfig) agent.Executor {
	var inner agent.Executor = agent.DirectExecutor{}
	if cfg.Resilience.Enabled {
		inner = resilience.NewExecutorWithOptions(resilience.OptionsFrom(cfg.Resilience)...)
	}

	chain := []middleware.Middleware{infmiddleware.Logging(infmiddleware.LoggingConfig{})}
	if rl := cfg.Resilience.RateLimit; rl.Rate > 0 {
		chain = append(chain, infmiddleware.RateLimit(infmiddleware.RateLimitConfig{
			Rate:  rl.Rate,
			Burst: rl.Burst,
			Scope: infmiddleware.RateLimitScope(rl.Scope),
		}))
	}
	return middleware.Wrap(inner, chain...)
}

// watchConfig reloads the configuration file on change and applies the
// settings that can change at runtime.
func (a *App) watchConfig(ctx context.Context, path string) error {
	w, err := config.NewWatcher(path, func(c *domainconfig.RuntimeConfig) {
		logging.SetLevel(c.Logging.Level)
	})
	if err != nil {
		return fmt.Errorf("failed to watch configuration: %w", err)
	}

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().
				Add(logging.Component("config")).
				Add(logging.ErrorField(err)).
				Msg("configuration watcher stopped")
		}
	}()
	return nil
}

// printSnapshot writes the final agent snapshot.
func (a *App) printSnapshot(snap agent.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	state, err := json.Marshal(snap.State)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "Agent %s\n", snap.ID)
	_, _ = fmt.Fprintf(a.stdout, "  Status: %s\n", snap.Status)
	_, _ = fmt.Fprintf(a.stdout, "  State: %s\n", state)
	_, _ = fmt.Fprintf(a.stdout, "  Actions: %v\n", snap.Actions)
	return nil
}
