// Package dispatch forwards approved tool calls to the execution backend.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/flemzord/scalegate/internal/metrics"
	"github.com/flemzord/scalegate/internal/security"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Call is one tool invocation as the backend sees it.
type Call struct {
	Tool    string
	Handler string
	Args    map[string]any
	// Domain is the tenant context forwarded to the backend.
	Domain string
}

// Result is a successful tool invocation. Content holds the text parts the
// backend returned, in order.
type Result struct {
	Tool     string
	Handler  string
	Content  []string
	Duration time.Duration
}

// Text joins all content parts.
func (r Result) Text() string { return strings.Join(r.Content, "\n") }

// BackendResult is what a Backend returns for a completed call. IsError is
// set when the tool ran and reported failure.
type BackendResult struct {
	Content []string
	IsError bool
}

// Backend executes tools remotely. Implementations must not retry.
type Backend interface {
	Call(ctx context.Context, call Call) (BackendResult, error)
}

// Whitelist answers whether a handler may call a tool.
type Whitelist interface {
	Allows(handlerID, toolID string) bool
}

// Config holds the dependencies of a Dispatcher.
type Config struct {
	Policy  Whitelist
	Backend Backend
	Domain  string

	Audit   *security.AuditLogger
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Dispatcher performs exactly one backend call per Invoke.
type Dispatcher struct {
	policy  Whitelist
	backend Backend
	domain  string
	audit   *security.AuditLogger
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Policy == nil {
		return nil, errors.New("dispatch: policy is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("dispatch: backend is required")
	}
	d := &Dispatcher{
		policy:  cfg.Policy,
		backend: cfg.Backend,
		domain:  cfg.Domain,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
		now:     cfg.Now,
	}
	if d.logger == nil {
		d.logger = slog.New(nopHandler{})
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer("github.com/flemzord/scalegate/internal/dispatch")
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Invoke calls toolID on behalf of handlerID. A tool outside the handler's
// whitelist fails with ErrNotWhitelisted before any remote call. Backend
// failures come back as *DispatchError.
func (d *Dispatcher) Invoke(ctx context.Context, handlerID, toolID string, args map[string]any) (Result, error) {
	if !d.policy.Allows(handlerID, toolID) {
		d.logger.Warn("dispatch: policy violation", "handler", handlerID, "tool", toolID)
		d.audit.Log(security.AuditEvent{
			Type:     security.EventPolicyViolation,
			Handler:  handlerID,
			ToolName: toolID,
			Detail:   "tool not whitelisted for handler",
		})
		d.metrics.Dispatch(toolID, "denied", 0)
		return Result{}, fmt.Errorf("%w: %s is not permitted for %s", ErrNotWhitelisted, toolID, handlerID)
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.invoke", trace.WithAttributes(
		attribute.String("scalegate.handler", handlerID),
		attribute.String("scalegate.tool", toolID),
	))
	defer span.End()

	d.audit.Log(security.AuditEvent{
		Type:     security.EventToolCall,
		Handler:  handlerID,
		ToolName: toolID,
		Metadata: auditArgs(args),
	})

	start := d.now()
	res, err := d.call(ctx, Call{Tool: toolID, Handler: handlerID, Args: maps.Clone(args), Domain: d.domain})
	elapsed := d.now().Sub(start)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case res.IsError:
		status = "tool_error"
		err = &ToolError{Message: strings.Join(res.Content, "\n")}
	}
	d.metrics.Dispatch(toolID, status, elapsed)
	d.audit.Log(security.AuditEvent{
		Type:     security.EventToolResult,
		Handler:  handlerID,
		ToolName: toolID,
		Detail:   status,
		Metadata: map[string]string{"duration": elapsed.String()},
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		d.logger.Error("dispatch: backend call failed", "handler", handlerID, "tool", toolID, "duration", elapsed, "error", err)
		return Result{}, &DispatchError{Tool: toolID, Cause: err}
	}

	d.logger.Debug("dispatch: backend call done", "handler", handlerID, "tool", toolID, "duration", elapsed)
	return Result{Tool: toolID, Handler: handlerID, Content: res.Content, Duration: elapsed}, nil
}

// call runs the backend with panic recovery.
func (d *Dispatcher) call(ctx context.Context, c Call) (res BackendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return d.backend.Call(ctx, c)
}

func auditArgs(args map[string]any) map[string]string {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = fmt.Sprint(v)
	}
	return out
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
