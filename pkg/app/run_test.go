package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/scalegate/internal/config"
	"github.com/flemzord/scalegate/internal/security"
)

func TestResolveConfigPath_XDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "scalegate")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(cfgDir, "scalegate.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: \"1\""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfgPath {
		t.Errorf("got %q, want %q", got, cfgPath)
	}
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")
	t.Chdir(t.TempDir())

	if _, err := ResolveConfigPath(); err == nil {
		t.Error("expected error when no config file found")
	}
}

func TestResolveConfigPath_WorkingDirectory(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")
	t.Chdir(t.TempDir())
	if err := os.WriteFile("scalegate.yaml", []byte("version: \"1\""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "scalegate.yaml" {
		t.Errorf("got %q, want scalegate.yaml", got)
	}
}

func TestDefaultDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	got := DefaultDataDir()
	want := "/custom/data/scalegate"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultDataDir_Fallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	_ = os.Unsetenv("XDG_DATA_HOME")

	got := DefaultDataDir()
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".local", "share", "scalegate")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRun_InvalidConfigPath(t *testing.T) {
	err := Run(RunParams{ConfigPath: "/nonexistent/config.yaml"})
	if err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestRun_InvalidConfigContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := Run(RunParams{ConfigPath: path})
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestRun_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noversion.yaml")
	if err := os.WriteFile(path, []byte("modules:\n  foo: {}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := Run(RunParams{ConfigPath: path})
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scalegate.yaml")
	if err := os.WriteFile(path, []byte("version: \"1\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if cfg.Persona != config.DefaultPersona {
		t.Errorf("persona = %q, want %q", cfg.Persona, config.DefaultPersona)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_JSONRedacts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := security.NewRedactor()
	r.AddLiteral("hunter2-secret")
	logger := NewLogger(&buf, config.LogConfig{Level: "info", Format: "json"}, r)

	logger.Debug("hidden")
	logger.Info("login", "password", "hunter2-secret")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record emitted at info level: %s", out)
	}
	if strings.Contains(out, "hunter2-secret") {
		t.Errorf("secret leaked: %s", out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &rec); err != nil {
		t.Fatalf("output is not one JSON record: %v: %s", err, out)
	}
	if rec["msg"] != "login" {
		t.Errorf("msg = %v, want login", rec["msg"])
	}
}

func TestNewLogger_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LogConfig{Level: "debug", Format: "text"}, security.NewRedactor())
	logger.Debug("visible")

	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestRunContext_ServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scalegate.yaml")
	raw := "version: \"1\"\nlog:\n  level: error\nmodules:\n  backend.mcp:\n    url: http://127.0.0.1:1/mcp\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunContext(ctx, RunParams{ConfigPath: path, DataDir: dir})
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunContext: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunContext did not return after cancel")
	}
}
