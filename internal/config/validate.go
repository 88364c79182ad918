package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/scalegate/internal/core"
	"github.com/flemzord/scalegate/internal/cron"
	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/policy"
	"gopkg.in/yaml.v3"
)

// ReasoningModule is the module id that provides the intent reasoner.
const ReasoningModule = "reasoning.openai"

// singleProvider lists module namespaces whose modules all register the
// same service, so at most one of each may be configured.
var singleProvider = []string{"backend", "reasoning", "audit"}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
)

// Validate checks the structural validity of a Config.
// It verifies the version field, the pipeline sections, and that all
// referenced module IDs exist in the registry.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Log.Level != "" && !validLogLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Errorf("config: log.level %q is invalid", cfg.Log.Level))
	}
	if cfg.Log.Format != "" && !validLogFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Errorf("config: log.format %q is invalid", cfg.Log.Format))
	}

	strategy, err := intent.ParseStrategy(cfg.Classifier.Strategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("config: classifier.strategy: %w", err))
	}
	if th := cfg.Classifier.Threshold(); th < 0 || th > 1 {
		errs = append(errs, fmt.Errorf("config: classifier.ambiguity_threshold %v must be within [0,1]", th))
	}
	if err == nil && strategy.UsesReasoning() {
		if _, ok := cfg.Modules[ReasoningModule]; !ok {
			errs = append(errs, fmt.Errorf("config: classifier.strategy %q requires module %q", strategy, ReasoningModule))
		}
	}

	errs = append(errs, validateConfirmation(cfg.Confirmation)...)
	errs = append(errs, validateHandlers(cfg.Handlers)...)

	if cfg.Audit.Retention < 0 {
		errs = append(errs, fmt.Errorf("config: audit.retention must not be negative, got %s", cfg.Audit.Retention))
	}
	if cfg.Audit.PruneSchedule != "" {
		if err := cron.ValidateSchedule(cfg.Audit.PruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: audit.prune_schedule: %w", err))
		}
	}

	if cfg.RateLimits.MessagesPerMin < 0 || cfg.RateLimits.ToolCallsPerMin < 0 {
		errs = append(errs, errors.New("config: rate_limits must not be negative"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateProviders(cfg.Modules)...)

	return errors.Join(errs...)
}

func validateProviders(configured map[string]yaml.Node) []error {
	var errs []error
	for _, ns := range singleProvider {
		var ids []string
		for _, info := range core.GetModulesByNamespace(ns) {
			if _, ok := configured[string(info.ID)]; ok {
				ids = append(ids, string(info.ID))
			}
		}
		if len(ids) > 1 {
			errs = append(errs, fmt.Errorf("config: only one %s module may be configured, got %s", ns, strings.Join(ids, ", ")))
		}
	}
	return errs
}

func validateConfirmation(c ConfirmationConfig) []error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("config: confirmation.timeout must be positive, got %d", c.Timeout))
	}
	if c.Retention < 0 {
		errs = append(errs, fmt.Errorf("config: confirmation.retention must not be negative, got %s", c.Retention))
	}
	if c.SweepSchedule != "" {
		if err := cron.ValidateSchedule(c.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("config: confirmation.sweep_schedule: %w", err))
		}
	}
	return errs
}

func validateHandlers(handlers map[string]HandlerConfig) []error {
	if len(handlers) == 0 {
		return nil
	}
	known := make(map[string]bool)
	descs, _ := policy.DefaultCatalog()
	for _, h := range descs {
		known[h.ID] = true
	}
	var errs []error
	for id := range handlers {
		if !known[id] {
			errs = append(errs, fmt.Errorf("config: unknown handler %q", id))
		}
	}
	return errs
}
