package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/flemzord/scalegate/internal/dispatch"
	"github.com/flemzord/scalegate/internal/format"
	"github.com/flemzord/scalegate/internal/gate"
	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/metrics"
	"github.com/flemzord/scalegate/internal/policy"
	"github.com/flemzord/scalegate/internal/router"
	"github.com/flemzord/scalegate/internal/security"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPersona is used when neither the request nor Config names one.
// It only reaches the read-only health and performance handlers.
const DefaultPersona = "viewer"

// Router resolves an intent into a tool call.
type Router interface {
	Route(in intent.Intent, persona string) (router.Decision, error)
}

// Gate holds risky calls until confirmed.
type Gate interface {
	Request(ctx context.Context, sessionID, toolID string, args map[string]any) (gate.Outcome, error)
	Confirm(ctx context.Context, id, sessionID, ack string) (gate.Outcome, error)
	Reject(ctx context.Context, id, sessionID string) (gate.Status, error)
	Pending(ctx context.Context, sessionID string) []gate.Confirmation
}

// Dispatcher runs an approved tool call.
type Dispatcher interface {
	Invoke(ctx context.Context, handlerID, toolID string, args map[string]any) (dispatch.Result, error)
}

// Catalog is the read side of the policy registry.
type Catalog interface {
	Lookup(toolID string) (policy.ToolDescriptor, error)
	Handlers() []policy.HandlerDescriptor
	Tools() []policy.ToolDescriptor
}

// Config groups the dependencies of a Pipeline.
type Config struct {
	Classifier intent.Classifier
	Router     Router
	Gate       Gate
	Dispatcher Dispatcher
	Policy     Catalog

	// Persona is the default persona for requests that carry none.
	Persona string

	// Limiter, if non-nil, caps tool calls per minute.
	Limiter *security.RateLimiter

	Audit   *security.AuditLogger
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Tracer  trace.Tracer
}

// Pipeline processes requests. Requests of one session are handled one at
// a time; different sessions run concurrently.
type Pipeline struct {
	cfg   Config
	lanes *LaneLock
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	var errs []error
	if cfg.Classifier == nil {
		errs = append(errs, errors.New("agent: classifier is required"))
	}
	if cfg.Router == nil {
		errs = append(errs, errors.New("agent: router is required"))
	}
	if cfg.Gate == nil {
		errs = append(errs, errors.New("agent: gate is required"))
	}
	if cfg.Dispatcher == nil {
		errs = append(errs, errors.New("agent: dispatcher is required"))
	}
	if cfg.Policy == nil {
		errs = append(errs, errors.New("agent: policy is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.Persona == "" {
		cfg.Persona = DefaultPersona
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(nopHandler{})
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("github.com/flemzord/scalegate/internal/agent")
	}
	return &Pipeline{cfg: cfg, lanes: NewLaneLock()}, nil
}

// Handle processes one utterance. Text replies such as "confirm <id>" are
// resolved through the gate instead of being classified.
func (p *Pipeline) Handle(ctx context.Context, req Request) Response {
	if req.SessionID == "" {
		return p.fail(errors.New("agent: session id is required"))
	}
	if err := p.cfg.Limiter.Allow(security.KindMessage, req.SessionID); err != nil {
		p.cfg.Metrics.RateLimited()
		p.cfg.Audit.Log(security.AuditEvent{
			Type:      security.EventRateLimit,
			SessionID: req.SessionID,
			Detail:    security.KindMessage,
		})
		return p.fail(err)
	}
	p.lanes.Acquire(req.SessionID)
	defer p.lanes.Release(req.SessionID)

	persona := p.persona(req.Persona)
	ctx, span := p.cfg.Tracer.Start(ctx, "agent.handle", trace.WithAttributes(
		attribute.String("scalegate.session", req.SessionID),
		attribute.String("scalegate.persona", persona),
	))
	defer span.End()

	p.cfg.Audit.Log(security.AuditEvent{
		Type:      security.EventMessage,
		SessionID: req.SessionID,
		Persona:   persona,
		Metadata:  map[string]string{"length": fmt.Sprint(len(req.Text))},
	})

	if r, ok := parseReply(req.Text, p.pendingID(ctx, req.SessionID)); ok {
		switch r.action {
		case replyConfirm:
			return p.traced(span, p.confirm(ctx, req.SessionID, r.id, r.ack))
		case replyReject:
			return p.traced(span, p.reject(ctx, req.SessionID, r.id))
		case replyPending:
			return p.pending(ctx, req.SessionID)
		}
	}

	in, err := p.cfg.Classifier.Classify(ctx, req.Text, intent.Session{ID: req.SessionID, Persona: persona})
	if err != nil {
		p.cfg.Logger.Error("agent: classification failed", "session", req.SessionID, "error", err)
		return p.traced(span, p.fail(err))
	}
	p.cfg.Metrics.IntentClassified(string(in.Tag), string(in.Source))
	span.SetAttributes(attribute.String("scalegate.intent", string(in.Tag)))
	p.cfg.Logger.Debug("agent: classified", "session", req.SessionID, "intent", in.Tag, "confidence", in.Confidence, "source", in.Source)

	switch in.Tag {
	case intent.Help:
		return Response{Kind: KindHelp, Text: format.Help(p.cfg.Policy.Handlers(), p.cfg.Policy.Tools()), Intent: &in}
	case intent.NeedsClarification:
		return Response{Kind: KindClarification, Text: format.ClarificationPrompt(in.Prompt), Intent: &in}
	}

	dec, err := p.cfg.Router.Route(in, persona)
	if err != nil {
		p.routingFailed(req.SessionID, persona, err)
		resp := p.fail(err)
		resp.Intent = &in
		return p.traced(span, resp)
	}
	if dec.Overview != nil {
		span.SetAttributes(attribute.Int("scalegate.overview_calls", len(dec.Overview.Calls)))
		resp := p.overview(ctx, req.SessionID, dec.Overview)
		resp.Intent = &in
		return p.traced(span, resp)
	}
	span.SetAttributes(attribute.String("scalegate.tool", dec.Tool), attribute.String("scalegate.tier", dec.Tier.String()))

	out, err := p.cfg.Gate.Request(ctx, req.SessionID, dec.Tool, dec.Args)
	if err != nil {
		resp := p.fail(err)
		resp.Intent = &in
		return p.traced(span, resp)
	}
	p.cfg.Metrics.GateOutcome(out.Decision.String())

	if out.Decision == gate.AwaitingConfirmation {
		c := out.Confirmation
		p.cfg.Audit.Log(security.AuditEvent{
			Type:           security.EventConfirmationRequested,
			SessionID:      req.SessionID,
			Persona:        persona,
			Handler:        dec.Handler,
			ToolName:       dec.Tool,
			ConfirmationID: c.ID,
			Detail:         dec.Tier.String(),
		})
		return Response{Kind: KindConfirmation, Text: format.Pending(*c), Intent: &in, Tool: dec.Tool, Confirmation: c}
	}

	resp := p.dispatch(ctx, req.SessionID, dec.Handler, dec.Tool, out.Args)
	resp.Intent = &in
	return p.traced(span, resp)
}

// Confirm resolves a pending confirmation and, when accepted, runs the
// captured call.
func (p *Pipeline) Confirm(ctx context.Context, sessionID, id, ack string) Response {
	p.lanes.Acquire(sessionID)
	defer p.lanes.Release(sessionID)

	ctx, span := p.cfg.Tracer.Start(ctx, "agent.confirm", trace.WithAttributes(
		attribute.String("scalegate.session", sessionID),
		attribute.String("scalegate.confirmation", id),
	))
	defer span.End()
	return p.traced(span, p.confirm(ctx, sessionID, id, ack))
}

// Reject cancels a pending confirmation.
func (p *Pipeline) Reject(ctx context.Context, sessionID, id string) Response {
	p.lanes.Acquire(sessionID)
	defer p.lanes.Release(sessionID)

	ctx, span := p.cfg.Tracer.Start(ctx, "agent.reject", trace.WithAttributes(
		attribute.String("scalegate.session", sessionID),
		attribute.String("scalegate.confirmation", id),
	))
	defer span.End()
	return p.traced(span, p.reject(ctx, sessionID, id))
}

// Pending lists the session's open confirmations.
func (p *Pipeline) Pending(ctx context.Context, sessionID string) Response {
	return p.pending(ctx, sessionID)
}

func (p *Pipeline) confirm(ctx context.Context, sessionID, id, ack string) Response {
	out, err := p.cfg.Gate.Confirm(ctx, id, sessionID, ack)
	if err != nil {
		outcome := "confirm_failed"
		if errors.Is(err, gate.ErrExpired) {
			outcome = "expired"
			p.resolved(sessionID, id, "", gate.StatusExpired)
		}
		p.cfg.Metrics.GateOutcome(outcome)
		p.cfg.Logger.Info("agent: confirmation refused", "session", sessionID, "id", id, "error", err)
		return p.fail(err)
	}
	p.cfg.Metrics.GateOutcome("confirmed")
	p.resolved(sessionID, id, out.Tool, gate.StatusConfirmed)

	desc, err := p.cfg.Policy.Lookup(out.Tool)
	if err != nil {
		return p.fail(err)
	}
	resp := p.dispatch(ctx, sessionID, desc.Handler, out.Tool, out.Args)
	resp.Confirmation = out.Confirmation
	return resp
}

func (p *Pipeline) reject(ctx context.Context, sessionID, id string) Response {
	status, err := p.cfg.Gate.Reject(ctx, id, sessionID)
	if err != nil {
		return p.fail(err)
	}
	p.cfg.Metrics.GateOutcome(strings.ToLower(string(status)))
	p.resolved(sessionID, id, "", status)
	return Response{Kind: KindCancelled, Text: format.Rejected(id, status)}
}

func (p *Pipeline) pending(ctx context.Context, sessionID string) Response {
	cs := p.cfg.Gate.Pending(ctx, sessionID)
	return Response{Kind: KindPending, Text: format.PendingList(cs), Pending: cs}
}

// pendingID reports whether id names one of the session's open
// confirmations.
func (p *Pipeline) pendingID(ctx context.Context, sessionID string) func(string) bool {
	return func(id string) bool {
		return slices.ContainsFunc(p.cfg.Gate.Pending(ctx, sessionID), func(c gate.Confirmation) bool {
			return c.ID == id
		})
	}
}

func (p *Pipeline) dispatch(ctx context.Context, sessionID, handlerID, toolID string, args map[string]any) Response {
	res, err := p.invoke(ctx, sessionID, handlerID, toolID, args)
	if err != nil {
		resp := p.fail(err)
		resp.Tool = toolID
		return resp
	}
	return Response{Kind: KindResult, Text: format.Result(res), Tool: toolID, Content: res.Content}
}

// invoke makes one remote call, subject to the tool-call rate limit.
func (p *Pipeline) invoke(ctx context.Context, sessionID, handlerID, toolID string, args map[string]any) (dispatch.Result, error) {
	if err := p.cfg.Limiter.Allow(security.KindToolCall, sessionID); err != nil {
		p.cfg.Metrics.RateLimited()
		p.cfg.Audit.Log(security.AuditEvent{
			Type:      security.EventRateLimit,
			SessionID: sessionID,
			Handler:   handlerID,
			ToolName:  toolID,
			Detail:    security.KindToolCall,
		})
		return dispatch.Result{}, err
	}
	return p.cfg.Dispatcher.Invoke(ctx, handlerID, toolID, args)
}

// overview runs the calls of an overview in order and renders them as one
// reply. Each call still passes the gate and is made at most once. A failed
// call is reported in its own section; the reply is an error only when
// every call failed.
func (p *Pipeline) overview(ctx context.Context, sessionID string, ov *router.Overview) Response {
	var (
		sections = make([]format.Section, 0, len(ov.Calls))
		content  []string
		errs     []error
	)
	for _, c := range ov.Calls {
		var res dispatch.Result
		out, err := p.cfg.Gate.Request(ctx, sessionID, c.Tool, c.Args)
		if err == nil {
			p.cfg.Metrics.GateOutcome(out.Decision.String())
			if out.Decision != gate.Proceed {
				err = fmt.Errorf("agent: overview call %s is not read-only", c.Tool)
			}
		}
		if err == nil {
			res, err = p.invoke(ctx, sessionID, c.Handler, c.Tool, out.Args)
		}
		if err != nil {
			p.cfg.Logger.Warn("agent: overview call failed", "session", sessionID, "tool", c.Tool, "error", err)
			errs = append(errs, err)
		}
		sections = append(sections, format.Section{Title: c.Section, Result: res, Err: err})
		content = append(content, res.Content...)
	}
	if len(errs) == len(ov.Calls) {
		return p.fail(errors.Join(errs...))
	}
	return Response{Kind: KindResult, Text: format.Overview(ov.Title, sections, ov.Flag), Content: content}
}

func (p *Pipeline) resolved(sessionID, id, tool string, status gate.Status) {
	p.cfg.Audit.Log(security.AuditEvent{
		Type:           security.EventConfirmationResolved,
		SessionID:      sessionID,
		ToolName:       tool,
		ConfirmationID: id,
		Detail:         string(status),
	})
}

func (p *Pipeline) routingFailed(sessionID, persona string, err error) {
	code := ErrorCode(err)
	p.cfg.Metrics.RoutingError(code)

	var pe *router.PersonaError
	if errors.As(err, &pe) {
		p.cfg.Audit.Log(security.AuditEvent{
			Type:      security.EventPolicyViolation,
			SessionID: sessionID,
			Persona:   persona,
			Handler:   pe.Handler,
			Detail:    "persona not permitted",
		})
	}
}

func (p *Pipeline) persona(requested string) string {
	if requested != "" {
		return requested
	}
	return p.cfg.Persona
}

func (p *Pipeline) fail(err error) Response {
	return Response{Kind: KindError, Text: format.Error(err), Err: err, ErrorCode: ErrorCode(err)}
}

// traced marks span as failed when resp is an error.
func (p *Pipeline) traced(span trace.Span, resp Response) Response {
	if resp.Err != nil {
		span.RecordError(resp.Err)
		span.SetStatus(codes.Error, resp.ErrorCode)
	}
	return resp
}

// ErrorCode maps err to a stable, machine-readable name.
func ErrorCode(err error) string {
	table := []struct {
		target error
		code   string
	}{
		{router.ErrNoHandlerForIntent, "no_handler"},
		{router.ErrAmbiguousIntent, "ambiguous_intent"},
		{router.ErrMissingParameter, "missing_parameter"},
		{router.ErrInvalidParameter, "invalid_parameter"},
		{router.ErrPersonaDenied, "persona_denied"},
		{dispatch.ErrNotWhitelisted, "not_whitelisted"},
		{dispatch.ErrToolFailed, "tool_failed"},
		{dispatch.ErrDispatch, "dispatch_failed"},
		{gate.ErrNotFound, "not_found"},
		{gate.ErrSessionMismatch, "session_mismatch"},
		{gate.ErrAlreadyResolved, "already_resolved"},
		{gate.ErrExpired, "expired"},
		{gate.ErrAcknowledgementMismatch, "acknowledgement_required"},
		{security.ErrRateLimited, "rate_limited"},
		{intent.ErrReasoning, "classification_failed"},
		{policy.ErrToolNotFound, "unknown_tool"},
	}
	for _, c := range table {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return "internal"
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
