package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envRef matches ${VAR} and ${VAR:-default}. A default may contain "\}".
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML file at path and parses it like Parse.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment references in raw, decodes it, and applies
// defaults. A reference to an unset variable without a default is an error.
func Parse(raw []byte) (*Config, error) {
	cfg, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func decode(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// expandEnv substitutes environment references line by line. Comment
// lines are copied untouched, so a commented-out secret reference does not
// require its variable to be set.
func expandEnv(raw []byte) ([]byte, error) {
	var (
		out  bytes.Buffer
		errs []error
		line int
	)
	out.Grow(len(raw))
	for l := range bytes.Lines(raw) {
		line++
		if bytes.HasPrefix(bytes.TrimLeft(l, " \t"), []byte("#")) {
			out.Write(l)
			continue
		}
		out.Write(envRef.ReplaceAllFunc(l, func(ref []byte) []byte {
			m := envRef.FindSubmatch(ref)
			if v, ok := os.LookupEnv(string(m[1])); ok {
				return []byte(v)
			}
			if m[2] != nil {
				return m[2]
			}
			errs = append(errs, fmt.Errorf("line %d: variable %s is not set", line, m[1]))
			return ref
		}))
	}
	return out.Bytes(), errors.Join(errs...)
}
