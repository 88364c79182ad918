package config

import (
	"maps"
	"slices"
)

// Resolve lists the configured module ids in load order.
func Resolve(cfg *Config) []string {
	return slices.Sorted(maps.Keys(cfg.Modules))
}
