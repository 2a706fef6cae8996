// Package telemetry configures the OpenTelemetry tracer used by
// pkg/orchestrator's apply spans when an OTLP collector endpoint is
// configured. Without it, the orchestrator falls back to whatever tracer
// provider is globally registered (a no-op one, absent other setup).
//
// Grounded on the reference platform's pkg/observability/observability.go
// (resource, exporter, sampler, TracerProvider wiring), narrowed to the
// trace half only — the kernel has no request-rate/error/duration metrics
// of its own to export.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the exporter endpoint and service identity attached to
// every span's resource.
type Config struct {
	ServiceName string
	Endpoint    string // OTLP/gRPC collector address, e.g. "localhost:4317"
	Insecure    bool
}

// Provider owns a TracerProvider and must be shut down on exit to flush
// any batched spans.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// New builds a batch-exporting TracerProvider over an OTLP/gRPC exporter
// and registers it as the global provider, so pkg/orchestrator's
// otel.Tracer(...) calls pick it up without further wiring.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp, tracer: tp.Tracer(cfg.ServiceName)}, nil
}

// Tracer returns the tracer orchestrator.WithTracer should be given.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown flushes any batched spans and releases the exporter connection.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}
