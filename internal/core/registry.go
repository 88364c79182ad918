package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// registry holds the module factories linked into the binary. Modules add
// themselves from init; the application reads it when building.
var registry = struct {
	sync.RWMutex
	byID map[ModuleID]ModuleInfo
}{byID: make(map[ModuleID]ModuleInfo)}

// RegisterModule adds a module factory. It panics on an empty id, a nil
// constructor, or a duplicate id, since all three are programming errors
// caught at init.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	switch {
	case info.ID == "":
		panic("core: module ID must not be empty")
	case info.New == nil:
		panic(fmt.Sprintf("core: module %s has no constructor", info.ID))
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.byID[info.ID]; dup {
		panic(fmt.Sprintf("core: module %s registered twice", info.ID))
	}
	registry.byID[info.ID] = info
}

// GetModule looks up a registered module by id.
func GetModule(id string) (ModuleInfo, bool) {
	registry.RLock()
	defer registry.RUnlock()
	info, ok := registry.byID[ModuleID(id)]
	return info, ok
}

// GetModules returns every registered module sorted by id.
func GetModules() []ModuleInfo {
	registry.RLock()
	defer registry.RUnlock()
	return slices.SortedFunc(maps.Values(registry.byID), byID)
}

// GetModulesByNamespace returns the modules under namespace, so "backend"
// yields "backend.mcp" but not "backend" itself.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return slices.DeleteFunc(GetModules(), func(info ModuleInfo) bool {
		return info.ID.Namespace() != namespace || string(info.ID) == namespace
	})
}

func byID(a, b ModuleInfo) int {
	return strings.Compare(string(a.ID), string(b.ID))
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	registry.Lock()
	defer registry.Unlock()
	clear(registry.byID)
}
