// Package gateway provides the HTTP and WebSocket front end for the request
// pipeline, plus health, status, metrics and admin endpoints. It binds to
// loopback by default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/scalegate/internal/agent"
	"github.com/flemzord/scalegate/internal/core"
	"github.com/flemzord/scalegate/internal/metrics"
	"github.com/flemzord/scalegate/internal/policy"
	"github.com/flemzord/scalegate/internal/security"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// ModuleID is the registry id of the gateway.
const ModuleID = "gateway.http"

// Service names resolved at Start.
const (
	ServiceAgent    = "agent.pipeline"
	ServicePolicy   = "policy.registry"
	ServiceGate     = "gate"
	ServiceMetrics  = "metrics"
	ServiceBackend  = "dispatch.backend"
	ServiceAudit    = "security.audit"
	ServiceRedactor = "security.redactor"
	ServiceConfig   = "config.path"
)

// Agent is the request pipeline as seen by the gateway.
type Agent interface {
	Handle(ctx context.Context, req agent.Request) agent.Response
	Confirm(ctx context.Context, sessionID, id, ack string) agent.Response
	Reject(ctx context.Context, sessionID, id string) agent.Response
	Pending(ctx context.Context, sessionID string) agent.Response
}

// Catalog lists the handler and tool policy.
type Catalog interface {
	Handlers() []policy.HandlerDescriptor
	Tools() []policy.ToolDescriptor
}

// HealthChecker checks the tool backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PendingCounter reports how many confirmations are open.
type PendingCounter interface {
	PendingCount() int
}

// Gateway is the HTTP gateway module. Its dependencies are resolved from
// the service registry at Start.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	agent      Agent
	catalog    Catalog
	backend    HealthChecker
	pending    PendingCounter
	prom       *metrics.Metrics
	audit      *security.AuditLogger
	redactor   *security.Redactor
	configPath string
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = &Metrics{}

	ctx.RegisterService("gateway.metrics", g.metrics)
	if r, ok := core.ServiceAs[*security.Redactor](ctx, ServiceRedactor); ok {
		r.AddLiterals(g.config.Auth.Secrets()...)
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	if !g.config.Auth.IsConfigured() && !isLoopback(g.config.Bind) {
		return fmt.Errorf("gateway: auth is required when binding to non-loopback address %s", g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	if err := g.resolve(); err != nil {
		return err
	}
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolve binds services registered by other modules and the wiring layer.
// The agent pipeline is required; everything else degrades gracefully.
func (g *Gateway) resolve() error {
	a, ok := core.ServiceAs[Agent](g.appCtx, ServiceAgent)
	if !ok {
		return fmt.Errorf("gateway: service %q is not registered", ServiceAgent)
	}
	g.agent = a
	g.catalog, _ = core.ServiceAs[Catalog](g.appCtx, ServicePolicy)
	g.backend, _ = core.ServiceAs[HealthChecker](g.appCtx, ServiceBackend)
	g.pending, _ = core.ServiceAs[PendingCounter](g.appCtx, ServiceGate)
	g.prom, _ = core.ServiceAs[*metrics.Metrics](g.appCtx, ServiceMetrics)
	g.audit, _ = core.ServiceAs[*security.AuditLogger](g.appCtx, ServiceAudit)
	g.redactor, _ = core.ServiceAs[*security.Redactor](g.appCtx, ServiceRedactor)
	g.configPath, _ = core.ServiceAs[string](g.appCtx, ServiceConfig)
	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

func isLoopback(bind string) bool {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
