package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	p, err := Setup(context.Background(), Config{ServiceName: "scalegate"})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if p.Enabled() {
		t.Error("provider should be disabled without endpoint")
	}
	_, span := p.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("noop span should have an invalid context")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}

func TestSetup_ExportsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := Setup(context.Background(), Config{ServiceName: "scalegate", Version: "test", Exporter: exp})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if !p.Enabled() {
		t.Fatal("provider should be enabled with an exporter")
	}

	_, span := otel.Tracer("global").Start(context.Background(), "agent.handle")
	span.End()
	if err := p.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "agent.handle" {
		t.Fatalf("spans = %+v, want one agent.handle", spans)
	}
	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "scalegate" {
		t.Errorf("service.name = %q, want scalegate", service)
	}
}

func TestNilProvider(t *testing.T) {
	t.Parallel()
	var p *Provider
	if p.Enabled() {
		t.Error("nil provider reports enabled")
	}
	if p.Tracer("x") == nil {
		t.Error("nil provider returned nil tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}
