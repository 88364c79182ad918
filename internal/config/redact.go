package config

import (
	"fmt"

	"github.com/flemzord/scalegate/internal/security"
	"gopkg.in/yaml.v3"
)

// Redacted renders cfg as a generic map with secrets replaced, for display
// by `config check` and the admin API. A nil redactor uses the default
// patterns.
func Redacted(cfg *Config, r *security.Redactor) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if r == nil {
		r = security.NewRedactor()
	}
	r.RedactMap(out)
	return out, nil
}
