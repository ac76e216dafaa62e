package telemetry

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
)

// PrometheusEmitter records runtime events in a Prometheus registry.
type PrometheusEmitter struct {
	gatherer prometheus.Gatherer

	signalsTotal        *prometheus.CounterVec
	instructionsTotal   *prometheus.CounterVec
	errorsTotal         *prometheus.CounterVec
	instructionDuration *prometheus.HistogramVec
	activeServers       prometheus.Gauge
}

// NewPrometheusEmitter registers the collectors with reg. A nil registry
// gets a fresh one.
func NewPrometheusEmitter(reg *prometheus.Registry) (*PrometheusEmitter, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	p := &PrometheusEmitter{
		gatherer: reg,
		signalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_runtime_signals_total",
				Help: "Total number of processed signals",
			},
			[]string{"agent", "type"},
		),
		instructionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_runtime_instructions_total",
				Help: "Total number of executed instructions",
			},
			[]string{"agent", "action", "status"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_runtime_errors_total",
				Help: "Total number of runtime errors by kind",
			},
			[]string{"agent", "kind"},
		),
		instructionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_runtime_instruction_duration_seconds",
				Help:    "Instruction execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent", "action"},
		),
		activeServers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "agent_runtime_active_servers",
				Help: "Number of running agent servers",
			},
		),
	}

	var errs []error
	for _, c := range []prometheus.Collector{
		p.signalsTotal,
		p.instructionsTotal,
		p.errorsTotal,
		p.instructionDuration,
		p.activeServers,
	} {
		errs = append(errs, reg.Register(c))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// Handler returns an HTTP handler that serves the registry.
func (p *PrometheusEmitter) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Emit implements telemetry.Emitter.
func (p *PrometheusEmitter) Emit(_ context.Context, event telemetry.Event) {
	agentID := event.Str(telemetry.MetaAgentID)

	switch event.Name {
	case telemetry.ServerStart:
		p.activeServers.Inc()
	case telemetry.ServerStop:
		p.activeServers.Dec()
	case telemetry.SignalStop:
		p.signalsTotal.WithLabelValues(agentID, event.Str(telemetry.MetaSignalType)).Inc()
	case telemetry.InstructionStop, telemetry.InstructionFailed:
		status := "ok"
		if event.Name == telemetry.InstructionFailed {
			status = "error"
		}
		action := event.Str(telemetry.MetaAction)
		p.instructionsTotal.WithLabelValues(agentID, action, status).Inc()
		p.instructionDuration.WithLabelValues(agentID, action).
			Observe(event.Measurements[telemetry.MeasureDuration] / 1000)
	case telemetry.RoutingError, telemetry.ServerCrash, telemetry.QueueOverflow, telemetry.CheckpointFailed:
		p.errorsTotal.WithLabelValues(agentID, kindOf(event)).Inc()
	}
}

var _ telemetry.Emitter = (*PrometheusEmitter)(nil)
