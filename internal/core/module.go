package core

// ModuleID identifies a module, namespaced with a dot ("backend.mcp").
type ModuleID string

// Namespace returns the part of the id before the first dot.
func (id ModuleID) Namespace() string {
	for i := range len(id) {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// Name returns the part of the id after the first dot.
func (id ModuleID) Name() string {
	for i := range len(id) {
		if id[i] == '.' {
			return string(id[i+1:])
		}
	}
	return ""
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module
}

// Module is the interface every module implements.
type Module interface {
	ModuleInfo() ModuleInfo
}
