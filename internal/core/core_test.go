package core

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

type lifecycleLog struct {
	mu     sync.Mutex
	events []string
}

func (l *lifecycleLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *lifecycleLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

type lifecycleMod struct {
	name     string
	log      *lifecycleLog
	startErr error
}

func (m *lifecycleMod) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: ModuleID(m.name)}
}

func (m *lifecycleMod) Start() error {
	m.log.add("start " + m.name)
	return m.startErr
}

func (m *lifecycleMod) Stop(context.Context) error {
	m.log.add("stop " + m.name)
	return nil
}

func TestApp_StartStopOrder(t *testing.T) {
	log := &lifecycleLog{}
	app := NewApp(NewAppContext(nil, ""))
	app.AppendModule("a", &lifecycleMod{name: "a", log: log})
	app.AppendModule("b", &lifecycleMod{name: "b", log: log})

	if err := app.Start(); err != nil {
		t.Fatal(err)
	}
	app.Stop()

	want := []string{"start a", "start b", "stop b", "stop a"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestApp_StartFailureRollsBack(t *testing.T) {
	log := &lifecycleLog{}
	app := NewApp(NewAppContext(nil, ""))
	app.AppendModule("a", &lifecycleMod{name: "a", log: log})
	app.AppendModule("b", &lifecycleMod{name: "b", log: log, startErr: errors.New("boom")})
	app.AppendModule("c", &lifecycleMod{name: "c", log: log})

	if err := app.Start(); err == nil {
		t.Fatal("expected start error")
	}
	want := []string{"start a", "start b", "stop a"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestApp_Module(t *testing.T) {
	app := NewApp(NewAppContext(nil, ""))
	mod := &lifecycleMod{name: "gateway.http", log: &lifecycleLog{}}
	app.AppendModule("gateway.http", mod)

	got, ok := app.Module("gateway.http")
	if !ok || got != mod {
		t.Fatalf("Module = %v, %v", got, ok)
	}
	if _, ok := app.Module("missing"); ok {
		t.Error("unexpected module")
	}
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	log := &lifecycleLog{}
	app := NewApp(NewAppContext(nil, ""))
	app.AppendModule("a", &lifecycleMod{name: "a", log: log})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for !slices.Contains(log.list(), "start a") {
		select {
		case <-deadline:
			t.Fatal("module never started")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !slices.Contains(log.list(), "stop a") {
		t.Error("module was not stopped")
	}
}

type stubModule struct{ id ModuleID }

func (m stubModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module { return stubModule{id: m.id} }}
}

func TestRegistry_Namespace(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(stubModule{id: "backend.mcp"})
	RegisterModule(stubModule{id: "audit.sqlite"})
	RegisterModule(stubModule{id: "backend.fake"})

	got := GetModulesByNamespace("backend")
	if len(got) != 2 || got[0].ID != "backend.fake" || got[1].ID != "backend.mcp" {
		t.Errorf("backend modules = %v", got)
	}
	if n := len(GetModules()); n != 3 {
		t.Errorf("modules = %d, want 3", n)
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(stubModule{id: "backend.mcp"})
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	RegisterModule(stubModule{id: "backend.mcp"})
}

type stopOnlyMod struct {
	log *lifecycleLog
}

func (m *stopOnlyMod) ModuleInfo() ModuleInfo { return ModuleInfo{ID: "store"} }

func (m *stopOnlyMod) Stop(context.Context) error {
	m.log.add("stop store")
	return nil
}

func TestApp_StopsModulesWithoutStart(t *testing.T) {
	log := &lifecycleLog{}
	app := NewApp(NewAppContext(nil, ""))
	app.AppendModule("store", &stopOnlyMod{log: log})
	app.AppendModule("a", &lifecycleMod{name: "a", log: log})

	if err := app.Start(); err != nil {
		t.Fatal(err)
	}
	app.Close()

	want := []string{"start a", "stop a", "stop store"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestApp_CloseAfterStopIsNoop(t *testing.T) {
	log := &lifecycleLog{}
	app := NewApp(NewAppContext(nil, ""))
	app.AppendModule("a", &lifecycleMod{name: "a", log: log})

	if err := app.Start(); err != nil {
		t.Fatal(err)
	}
	app.Stop()
	app.Close()

	want := []string{"start a", "stop a"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}
