package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/flemzord/scalegate/internal/agent"
	"github.com/flemzord/scalegate/internal/config"
	"github.com/flemzord/scalegate/internal/core"
	"github.com/flemzord/scalegate/internal/cron"
	"github.com/flemzord/scalegate/internal/dispatch"
	"github.com/flemzord/scalegate/internal/gate"
	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/metrics"
	"github.com/flemzord/scalegate/internal/policy"
	"github.com/flemzord/scalegate/internal/router"
	"github.com/flemzord/scalegate/internal/security"
)

// Service registry keys shared between the wiring layer and modules.
const (
	ServiceBackend   = "dispatch.backend"
	ServiceReasoner  = "intent.reasoner"
	ServiceRecorder  = "gate.recorder"
	ServiceStore     = "audit.store"
	ServicePipeline  = "agent.pipeline"
	ServiceGate      = "gate"
	ServicePolicy    = "policy.registry"
	ServiceMetrics   = "metrics"
	ServiceAudit     = "security.audit"
	ServiceRedactor  = "security.redactor"
	ServiceLimiter   = "security.ratelimiter"
	ServiceConfigKey = "config.path"
)

// ErrNoBackend is returned when no module provides the tool backend.
var ErrNoBackend = errors.New("app: no tool backend configured (add modules.backend.mcp)")

// schedulerModule wraps a *cron.Scheduler to satisfy core.Module,
// core.Starter, and core.Stopper, so the jobs follow the App lifecycle.
type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "scheduler"}
}

func (m *schedulerModule) Start() error {
	return m.scheduler.Start()
}

func (m *schedulerModule) Stop(ctx context.Context) error {
	return m.scheduler.Stop(ctx)
}

// Options tune Build.
type Options struct {
	Logger     *slog.Logger
	Redactor   *security.Redactor
	DataDir    string
	ConfigPath string

	// Exclude lists module ids that are configured but must not be loaded,
	// e.g. gateway.http for one-shot CLI commands.
	Exclude []string

	// Backend replaces the backend module. Used by tests.
	Backend dispatch.Backend

	// Now overrides the clock of the gate and dispatcher.
	Now func() time.Time
}

// Runtime is a fully wired request pipeline plus the module lifecycle
// around it.
type Runtime struct {
	App        *core.App
	AppCtx     *core.AppContext
	Config     *config.Config
	Logger     *slog.Logger
	Redactor   *security.Redactor
	Audit      *security.AuditLogger
	Limiter    *security.RateLimiter
	Policy     *policy.Registry
	Classifier intent.Classifier
	Router     *router.Router
	Gate       *gate.Gate
	Metrics    *metrics.Metrics
	Pipeline   *agent.Pipeline
	Scheduler  *cron.Scheduler

	closers []io.Closer
}

// Build loads the configured modules and wires the pipeline between
// LoadModules and Start: policy, classifier, router, gate, dispatcher and
// agent, then the scheduler. Services are registered so that modules such
// as the gateway can discover them at Start.
func Build(cfg *config.Config, opts Options) (rt *Runtime, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	redactor := opts.Redactor
	if redactor == nil {
		redactor = security.NewRedactor()
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	rt = &Runtime{Config: cfg, Logger: logger, Redactor: redactor}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	auditWriter, err := openAuditLog(cfg.Audit.LogPath)
	if err != nil {
		return rt, err
	}
	if c, ok := auditWriter.(io.Closer); ok {
		rt.closers = append(rt.closers, c)
	}
	rt.Audit = security.NewAuditLogger(security.AuditLoggerConfig{
		Writer:   auditWriter,
		Redactor: redactor,
	})
	rt.Limiter = security.NewRateLimiter(cfg.RateLimits)

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(ServiceAudit, rt.Audit)
	appCtx.RegisterService(ServiceRedactor, redactor)
	appCtx.RegisterService(ServiceLimiter, rt.Limiter)
	if opts.ConfigPath != "" {
		appCtx.RegisterService(ServiceConfigKey, opts.ConfigPath)
	}
	rt.AppCtx = appCtx

	rt.App = core.NewApp(appCtx)
	ids := slices.DeleteFunc(config.Resolve(cfg), func(id string) bool {
		return slices.Contains(opts.Exclude, id)
	})
	if err := rt.App.LoadModules(ids); err != nil {
		return rt, err
	}

	if err := wirePipeline(rt, opts); err != nil {
		return rt, err
	}
	return rt, nil
}

// wirePipeline builds the pipeline from loaded module services and appends
// the scheduler to the app lifecycle. Must run after LoadModules and before
// Start.
func wirePipeline(rt *Runtime, opts Options) error {
	cfg, appCtx, logger := rt.Config, rt.AppCtx, rt.Logger

	reg, err := policy.Default()
	if err != nil {
		return fmt.Errorf("app: policy: %w", err)
	}
	rt.Policy = reg
	rt.Metrics = metrics.New()

	backend := opts.Backend
	if backend == nil {
		backend, _ = core.ServiceAs[dispatch.Backend](appCtx, ServiceBackend)
	}
	if backend == nil {
		return ErrNoBackend
	}
	var domain string
	if d, ok := backend.(interface{ Domain() string }); ok {
		domain = d.Domain()
	}

	strategy, err := intent.ParseStrategy(cfg.Classifier.Strategy)
	if err != nil {
		return err
	}
	classifierOpts := []intent.Option{intent.WithLogger(logger)}
	if r, ok := core.ServiceAs[intent.Reasoner](appCtx, ServiceReasoner); ok {
		classifierOpts = append(classifierOpts, intent.WithReasoner(r))
	}
	classifier, err := intent.New(strategy, classifierOpts...)
	if err != nil {
		return fmt.Errorf("app: classifier: %w", err)
	}
	rt.Classifier = classifier

	rtr, err := router.New(router.Config{
		Policy:             reg,
		AmbiguityThreshold: cfg.Classifier.Threshold(),
		Disabled:           cfg.DisabledHandlers(),
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("app: router: %w", err)
	}
	rt.Router = rtr

	recorder, _ := core.ServiceAs[gate.Recorder](appCtx, ServiceRecorder)
	g, err := gate.New(gate.Config{
		Policy:    reg,
		Timeout:   cfg.Confirmation.TimeoutDuration(),
		Retention: cfg.Confirmation.Retention,
		Recorder:  recorder,
		Logger:    logger,
		Now:       opts.Now,
	})
	if err != nil {
		return fmt.Errorf("app: gate: %w", err)
	}
	rt.Gate = g

	d, err := dispatch.New(dispatch.Config{
		Policy:  reg,
		Backend: backend,
		Domain:  domain,
		Audit:   rt.Audit,
		Metrics: rt.Metrics,
		Logger:  logger,
		Now:     opts.Now,
	})
	if err != nil {
		return fmt.Errorf("app: dispatcher: %w", err)
	}

	p, err := agent.New(agent.Config{
		Classifier: classifier,
		Router:     rtr,
		Gate:       g,
		Dispatcher: d,
		Policy:     reg,
		Persona:    cfg.Persona,
		Limiter:    rt.Limiter,
		Audit:      rt.Audit,
		Metrics:    rt.Metrics,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("app: agent: %w", err)
	}
	rt.Pipeline = p

	appCtx.RegisterService(ServicePipeline, p)
	appCtx.RegisterService(ServiceGate, g)
	appCtx.RegisterService(ServicePolicy, reg)
	appCtx.RegisterService(ServiceMetrics, rt.Metrics)

	rt.Scheduler = cron.NewScheduler(logger)
	if err := rt.Scheduler.RegisterJob(&cron.ConfirmationSweepJob{
		Gate:         g,
		Gauge:        rt.Metrics,
		Logger:       logger,
		ScheduleExpr: cfg.Confirmation.SweepSchedule,
	}); err != nil {
		return err
	}
	if store, ok := core.ServiceAs[cron.Pruner](appCtx, ServiceStore); ok && cfg.Audit.Retention > 0 {
		if err := rt.Scheduler.RegisterJob(&cron.AuditPruneJob{
			Store:        store,
			Retention:    cfg.Audit.Retention,
			Logger:       logger,
			ScheduleExpr: cfg.Audit.PruneSchedule,
			Now:          opts.Now,
		}); err != nil {
			return err
		}
	}
	rt.App.AppendModule("scheduler", &schedulerModule{scheduler: rt.Scheduler})

	logger.Info("pipeline wired",
		"strategy", strategy,
		"persona", cfg.Persona,
		"disabled_handlers", cfg.DisabledHandlers(),
		"jobs", rt.Scheduler.Jobs(),
	)
	return nil
}

// Close stops started modules, releases loaded ones and closes the audit
// log.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.App != nil {
		rt.App.Close()
	}
	for _, c := range rt.closers {
		_ = c.Close()
	}
	rt.closers = nil
}

// openAuditLog opens the JSONL audit trail for appending. An empty path
// discards audit lines.
func openAuditLog(path string) (io.Writer, error) {
	if path == "" {
		return io.Discard, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("app: creating audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("app: opening audit log: %w", err)
	}
	return f, nil
}
