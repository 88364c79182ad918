// Package app provides the shared entry point for the scalegate binary:
// configuration loading, logging setup, pipeline wiring and the serve loop.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/flemzord/scalegate/internal/config"
	"github.com/flemzord/scalegate/internal/security"
	"github.com/flemzord/scalegate/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel overrides log.level from the configuration when non-empty.
	LogLevel string
}

// LoadConfig resolves, loads and validates the configuration.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run without signal handling: it returns once ctx is done
// and every module has stopped.
func RunContext(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}
	if params.LogLevel != "" {
		cfg.Log.Level = params.LogLevel
	}

	redactor := security.NewRedactor()
	logger := NewLogger(os.Stderr, cfg.Log, redactor)
	logger.Info("starting scalegate", "version", params.Version, "commit", params.Commit, "config", cfgPath)

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     params.Version,
		Insecure:    cfg.Telemetry.Insecure,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	rt, err := Build(cfg, Options{
		Logger:     logger,
		Redactor:   redactor,
		DataDir:    params.DataDir,
		ConfigPath: cfgPath,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.App.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	rt.App.Stop()
	if n := rt.Audit.WriteErrors(); n > 0 {
		logger.Warn("audit log write errors during run", "count", n)
	}
	logger.Info("shutdown complete")
	return nil
}

// NewLogger builds the process logger. Every record goes through the
// redacting handler so credentials never reach the output.
func NewLogger(w io.Writer, cfg config.LogConfig, redactor *security.Redactor) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var inner slog.Handler
	if cfg.Format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// ParseLevel maps a level name to slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/scalegate/scalegate.yaml, then
// ~/.config/scalegate/scalegate.yaml, then ./scalegate.yaml.
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "scalegate", "scalegate.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "scalegate", "scalegate.yaml"))
	}

	candidates = append(candidates, "scalegate.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/scalegate if set, otherwise ~/.local/share/scalegate.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "scalegate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "scalegate")
}
