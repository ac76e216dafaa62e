// Package observability provides OpenTelemetry tracing for agent servers.
package observability

import (
	"time"

	"github.com/felixgeelhaar/agent-runtime/domain/config"
)

// Config configures the tracing infrastructure.
type Config struct {
	// ServiceName is the name of the service for telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment is the deployment environment (e.g., "production", "staging").
	Environment string

	// Enabled enables span export (default: false).
	Enabled bool

	// Exporter specifies the trace exporter type.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the exporter connection.
	Insecure bool

	// SampleRate is the sampling rate (0.0-1.0, default: 1.0).
	SampleRate float64

	// BatchTimeout is the batch export timeout.
	BatchTimeout time.Duration

	// MaxExportBatchSize is the maximum batch size.
	MaxExportBatchSize int
}

// ExporterType specifies the trace exporter.
type ExporterType string

const (
	// ExporterOTLP exports to an OTLP endpoint (e.g., Jaeger, Tempo, Grafana).
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout exports to stdout (useful for development).
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export.
	ExporterNoop ExporterType = "noop"
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "agent-runtime",
		ServiceVersion:     "1.0.0",
		Environment:        "development",
		Exporter:           ExporterNoop,
		SampleRate:         1.0,
		BatchTimeout:       5 * time.Second,
		MaxExportBatchSize: 512,
	}
}

// Option configures the tracing infrastructure.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithTracing enables tracing with the specified exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Enabled = true
		c.Exporter = exporter
		c.Endpoint = endpoint
	}
}

// WithInsecure disables TLS for the exporter.
func WithInsecure() Option {
	return func(c *Config) {
		c.Insecure = true
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithStdoutTracing enables stdout tracing (for development).
func WithStdoutTracing() Option {
	return WithTracing(ExporterStdout, "")
}

// FromRuntimeConfig maps the tracing section of a runtime configuration to options.
func FromRuntimeConfig(name, version string, tc config.TracingConfig) []Option {
	opts := []Option{WithServiceName(name), WithServiceVersion(version)}
	if !tc.Enabled {
		return opts
	}

	exporter := ExporterType(tc.Exporter)
	if exporter == "" {
		exporter = ExporterStdout
	}
	opts = append(opts, WithTracing(exporter, tc.Endpoint))
	if tc.Insecure {
		opts = append(opts, WithInsecure())
	}
	if tc.SampleRate > 0 {
		opts = append(opts, WithSampleRate(tc.SampleRate))
	}
	return opts
}
