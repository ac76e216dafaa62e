package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/agent-runtime/domain/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Error("tracing should be disabled by default")
	}
	if cfg.Exporter != ExporterNoop {
		t.Errorf("Exporter = %s, want noop", cfg.Exporter)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", cfg.SampleRate)
	}
}

func TestFromRuntimeConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range FromRuntimeConfig("svc", "v2", config.TracingConfig{
		Enabled:    true,
		Exporter:   "otlp",
		Endpoint:   "collector:4317",
		Insecure:   true,
		SampleRate: 0.25,
	}) {
		opt(&cfg)
	}

	if cfg.ServiceName != "svc" || cfg.ServiceVersion != "v2" {
		t.Errorf("service = %s/%s, want svc/v2", cfg.ServiceName, cfg.ServiceVersion)
	}
	if !cfg.Enabled || cfg.Exporter != ExporterOTLP || cfg.Endpoint != "collector:4317" {
		t.Errorf("tracing = %+v, want otlp to collector:4317", cfg)
	}
	if !cfg.Insecure {
		t.Error("Insecure should be set")
	}
	if cfg.SampleRate != 0.25 {
		t.Errorf("SampleRate = %v, want 0.25", cfg.SampleRate)
	}
}

func TestNew_Disabled(t *testing.T) {
	t.Parallel()

	p, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "x")
	if span.IsRecording() {
		t.Error("disabled provider should not record spans")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_UnknownExporter(t *testing.T) {
	t.Parallel()

	_, err := New(WithTracing(ExporterType("zipkin"), ""))
	if !errors.Is(err, ErrUnknownExporter) {
		t.Errorf("New() error = %v, want ErrUnknownExporter", err)
	}
}

func TestSamplerFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestStartEndSpan(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	_, ok := StartSpan(context.Background(), tracer, SpanInstruction, AttrAction.String("inc"))
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), tracer, SpanSignal)
	EndSpan(failed, errors.New("no route"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != SpanInstruction || spans[0].Status().Code != codes.Ok {
		t.Errorf("first span = %s/%v, want %s/Ok", spans[0].Name(), spans[0].Status().Code, SpanInstruction)
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "no route" {
		t.Errorf("second span status = %+v, want Error/no route", spans[1].Status())
	}
}

func TestStartSpan_NilTracer(t *testing.T) {
	t.Parallel()

	ctx, span := StartSpan(context.Background(), nil, SpanBatch)
	if ctx == nil || span == nil {
		t.Fatal("StartSpan(nil tracer) returned nil")
	}
	EndSpan(span, nil)
}
