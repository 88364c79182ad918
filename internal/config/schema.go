// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for scalegate.
package config

import (
	"slices"
	"time"

	"github.com/flemzord/scalegate/internal/security"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultPersona             = "viewer"
	DefaultAmbiguityThreshold  = 0.5
	DefaultConfirmationTimeout = 300
	DefaultSweepSchedule       = "* * * * *"
	DefaultRetention           = time.Hour
	DefaultAuditRetention      = 30 * 24 * time.Hour
	DefaultPruneSchedule       = "0 * * * *"
	DefaultServiceName         = "scalegate"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "text"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log LogConfig `yaml:"log"`

	// Persona is who requests act as when the caller's credentials bind
	// none. Defaults to the read-only viewer persona.
	Persona string `yaml:"persona"`

	Classifier   ClassifierConfig   `yaml:"classifier"`
	Confirmation ConfirmationConfig `yaml:"confirmation"`

	// Handlers toggles domain handlers by id. Handlers not listed stay enabled.
	Handlers map[string]HandlerConfig `yaml:"handlers"`

	RateLimits security.RateLimitConfig `yaml:"rate_limits"`
	Audit      AuditConfig              `yaml:"audit"`
	Telemetry  TelemetryConfig          `yaml:"telemetry"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "backend.mcp").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// ClassifierConfig selects the intent classification strategy.
type ClassifierConfig struct {
	Strategy           string   `yaml:"strategy"`
	AmbiguityThreshold *float64 `yaml:"ambiguity_threshold"`
}

// Threshold returns the configured ambiguity threshold or the default.
func (c ClassifierConfig) Threshold() float64 {
	if c.AmbiguityThreshold == nil {
		return DefaultAmbiguityThreshold
	}
	return *c.AmbiguityThreshold
}

// ConfirmationConfig controls the confirmation gate.
type ConfirmationConfig struct {
	// Timeout is the confirmation lifetime in seconds.
	Timeout       int           `yaml:"timeout"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	Retention     time.Duration `yaml:"retention"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c ConfirmationConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// HandlerConfig toggles one domain handler.
type HandlerConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// AuditConfig configures the JSONL audit trail.
type AuditConfig struct {
	// LogPath is the JSONL file; empty discards audit lines.
	LogPath string `yaml:"log_path"`

	// Retention is how long persisted confirmations are kept by the
	// audit_prune job.
	Retention     time.Duration `yaml:"retention"`
	PruneSchedule string        `yaml:"prune_schedule"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	// OTLPEndpoint is host:port of an OTLP/HTTP collector. Empty disables
	// export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// ApplyDefaults fills zero-valued settings.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Persona == "" {
		c.Persona = DefaultPersona
	}
	if c.Confirmation.Timeout == 0 {
		c.Confirmation.Timeout = DefaultConfirmationTimeout
	}
	if c.Confirmation.SweepSchedule == "" {
		c.Confirmation.SweepSchedule = DefaultSweepSchedule
	}
	if c.Confirmation.Retention == 0 {
		c.Confirmation.Retention = DefaultRetention
	}
	if c.Audit.Retention == 0 {
		c.Audit.Retention = DefaultAuditRetention
	}
	if c.Audit.PruneSchedule == "" {
		c.Audit.PruneSchedule = DefaultPruneSchedule
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// DisabledHandlers returns the sorted ids of handlers explicitly disabled.
func (c *Config) DisabledHandlers() []string {
	var out []string
	for id, h := range c.Handlers {
		if h.Enabled != nil && !*h.Enabled {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
