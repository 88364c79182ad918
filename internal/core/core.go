package core

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of modules.
type App struct {
	ctx     *AppContext
	modules []moduleInstance
	logger  *slog.Logger

	// stopped is set once the modules have been stopped or released.
	stopped bool
}

type moduleInstance struct {
	id      ModuleID
	module  Module
	started bool
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, provisions, and validates the modules in order.
// If any step fails, already-loaded modules are cleaned up.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.cleanup()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.AppendModule(id, mod)
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// AppendModule adds an already-built module to the lifecycle. Components
// wired outside the registry join start/stop ordering this way.
func (a *App) AppendModule(id string, mod Module) {
	a.modules = append(a.modules, moduleInstance{id: ModuleID(id), module: mod})
}

// Module returns the loaded module with the given id.
func (a *App) Module(id string) (Module, bool) {
	for _, mi := range a.modules {
		if string(mi.id) == id {
			return mi.module, true
		}
	}
	return nil, false
}

// Start starts all modules that implement Starter, in order. If any Start
// fails, already-started modules are stopped in reverse order.
// Modules that only implement Stopper count as started.
func (a *App) Start() error {
	for i := range a.modules {
		mi := &a.modules[i]
		s, ok := mi.module.(Starter)
		if !ok {
			// Modules without Start still hold resources acquired in
			// Provision and must be stopped with the rest.
			mi.started = true
			continue
		}
		a.logger.Info("starting module", "module", string(mi.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(mi.id), "error", err)
			a.stopModules(i - 1)
			a.stopped = true
			return fmt.Errorf("starting module %s: %w", mi.id, err)
		}
		mi.started = true
	}
	a.logger.Info("all modules started")
	return nil
}

// Stop stops all started modules in reverse order with a timeout.
func (a *App) Stop() {
	a.stopModules(len(a.modules) - 1)
	a.stopped = true
}

func (a *App) stopModules(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		mi := &a.modules[i]
		if !mi.started {
			continue
		}
		if s, ok := mi.module.(Stopper); ok {
			a.logger.Info("stopping module", "module", string(mi.id))
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop error", "module", string(mi.id), "error", err)
			}
		}
		mi.started = false
	}
}

// cleanup releases modules that were loaded but never started.
func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.modules) - 1; i >= 0; i-- {
		if s, ok := a.modules[i].module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.modules = nil
	a.stopped = true
}

// Close stops started modules, or releases loaded ones if nothing started.
// It is a no-op after Stop.
func (a *App) Close() {
	if a.stopped {
		return
	}
	for _, mi := range a.modules {
		if mi.started {
			a.Stop()
			return
		}
	}
	a.cleanup()
}

// Run starts all modules and blocks until ctx is done or SIGINT/SIGTERM
// arrives, then stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.logger.Info("shutdown signal received")

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
