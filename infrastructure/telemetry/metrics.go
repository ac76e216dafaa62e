// Package telemetry provides runtime event emitters backed by OpenTelemetry
// metrics, Prometheus, the structured logger and an in-memory ring buffer.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/felixgeelhaar/agent-runtime/domain/telemetry"
)

// MetricsEmitter records runtime events as OpenTelemetry instruments.
type MetricsEmitter struct {
	signals         metric.Int64Counter
	instructions    metric.Int64Counter
	errors          metric.Int64Counter
	instructionTime metric.Float64Histogram
	signalTime      metric.Float64Histogram
	activeServers   metric.Int64UpDownCounter
}

// MetricsConfig configures the metrics emitter.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/agent-runtime").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Provider supplies the meter. The global provider is used when nil.
	Provider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/agent-runtime",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsEmitter creates the instruments and returns the emitter.
func NewMetricsEmitter(cfg MetricsConfig) (*MetricsEmitter, error) {
	if cfg.MeterName == "" {
		cfg.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := cfg.Provider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(cfg.MeterName, metric.WithInstrumentationVersion(cfg.MeterVersion))

	var (
		m    MetricsEmitter
		err  error
		errs []error
	)

	m.signals, err = meter.Int64Counter(
		"agent_runtime.signals",
		metric.WithDescription("Number of processed signals"),
		metric.WithUnit("{signal}"),
	)
	errs = append(errs, err)

	m.instructions, err = meter.Int64Counter(
		"agent_runtime.instructions",
		metric.WithDescription("Number of executed instructions"),
		metric.WithUnit("{instruction}"),
	)
	errs = append(errs, err)

	m.errors, err = meter.Int64Counter(
		"agent_runtime.errors",
		metric.WithDescription("Number of runtime errors by kind"),
		metric.WithUnit("{error}"),
	)
	errs = append(errs, err)

	m.instructionTime, err = meter.Float64Histogram(
		"agent_runtime.instruction.duration",
		metric.WithDescription("Instruction execution duration"),
		metric.WithUnit("ms"),
	)
	errs = append(errs, err)

	m.signalTime, err = meter.Float64Histogram(
		"agent_runtime.signal.duration",
		metric.WithDescription("Signal processing duration"),
		metric.WithUnit("ms"),
	)
	errs = append(errs, err)

	m.activeServers, err = meter.Int64UpDownCounter(
		"agent_runtime.servers.active",
		metric.WithDescription("Number of running agent servers"),
		metric.WithUnit("{server}"),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Emit implements telemetry.Emitter.
func (m *MetricsEmitter) Emit(ctx context.Context, event telemetry.Event) {
	agentID := attribute.String("agent_id", event.Str(telemetry.MetaAgentID))

	switch event.Name {
	case telemetry.ServerStart:
		m.activeServers.Add(ctx, 1, metric.WithAttributes(agentID))
	case telemetry.ServerStop:
		m.activeServers.Add(ctx, -1, metric.WithAttributes(agentID))
	case telemetry.SignalStop:
		attrs := metric.WithAttributes(agentID, attribute.String("signal_type", event.Str(telemetry.MetaSignalType)))
		m.signals.Add(ctx, 1, attrs)
		m.signalTime.Record(ctx, event.Measurements[telemetry.MeasureDuration], attrs)
	case telemetry.InstructionStop, telemetry.InstructionFailed:
		status := "ok"
		if event.Name == telemetry.InstructionFailed {
			status = "error"
		}
		attrs := metric.WithAttributes(
			agentID,
			attribute.String("action", event.Str(telemetry.MetaAction)),
			attribute.String("status", status),
		)
		m.instructions.Add(ctx, 1, attrs)
		m.instructionTime.Record(ctx, event.Measurements[telemetry.MeasureDuration], attrs)
	case telemetry.RoutingError, telemetry.ServerCrash, telemetry.QueueOverflow, telemetry.CheckpointFailed:
		m.errors.Add(ctx, 1, metric.WithAttributes(agentID, attribute.String("kind", kindOf(event))))
	}
}

// kindOf returns the last segment of an event name.
func kindOf(event telemetry.Event) string {
	path := event.Path()
	return path[len(path)-1]
}

var _ telemetry.Emitter = (*MetricsEmitter)(nil)
