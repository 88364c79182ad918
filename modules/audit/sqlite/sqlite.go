// Package sqlite persists resolved confirmations in a SQLite database so
// operators can review who approved or rejected which destructive call. It
// uses modernc.org/sqlite (pure Go, no CGO) in WAL mode.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/scalegate/internal/core"
	"github.com/flemzord/scalegate/internal/gate"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Service registry keys.
const (
	RecorderService = "gate.recorder"
	StoreService    = "audit.store"
)

// Compile-time interface guards.
var (
	_ gate.Recorder     = (*Store)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module provides a Store as both the gate recorder and the audit store.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "audit.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, DefaultDBFile)
	}

	db, err := open(context.TODO(), m.config)
	if err != nil {
		return err
	}
	m.store = &Store{db: db}

	ctx.RegisterService(RecorderService, m.store)
	ctx.RegisterService(StoreService, m.store)

	m.logger.Info("sqlite audit module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.store.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("sqlite audit module stopping")
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Store returns the confirmation store.
func (m *Module) Store() *Store { return m.store }
