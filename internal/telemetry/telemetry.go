// Package telemetry installs the OpenTelemetry tracer provider used by the
// pipeline spans.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls span export.
type Config struct {
	// Endpoint is host:port of an OTLP/HTTP collector. Empty disables export.
	Endpoint    string
	ServiceName string
	Version     string
	Insecure    bool

	// Exporter overrides the OTLP exporter. Used by tests.
	Exporter sdktrace.SpanExporter
	Logger   *slog.Logger
}

// Provider owns the installed tracer provider.
type Provider struct {
	tp      trace.TracerProvider
	sdk     *sdktrace.TracerProvider
	enabled bool
}

// Setup builds a tracer provider and installs it as the global provider.
// Without an endpoint or exporter a no-op provider is installed.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(nopHandler{})
	}

	exp := cfg.Exporter
	if exp == nil && cfg.Endpoint == "" {
		p := &Provider{tp: noop.NewTracerProvider()}
		otel.SetTracerProvider(p.tp)
		return p, nil
	}
	if exp == nil {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		var err error
		exp, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating exporter: %w", err)
		}
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.Version))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)
	return &Provider{tp: sdk, sdk: sdk, enabled: true}, nil
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.enabled
}

// Tracer returns a named tracer from the provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tp.Tracer(name)
}

// ForceFlush exports all finished spans.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	if err := p.sdk.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
