// Package dispatchtest provides test doubles for the dispatch package.
package dispatchtest

import (
	"context"
	"maps"
	"sync"

	"github.com/flemzord/scalegate/internal/dispatch"
)

// Backend is a scripted dispatch.Backend that records every call.
// Responses are looked up by tool id; Default answers the rest.
type Backend struct {
	mu        sync.Mutex
	calls     []dispatch.Call
	responses map[string]Response

	// Default is returned for tools without a scripted response.
	Default Response

	healthErr error
}

// Response is one scripted backend reply.
type Response struct {
	Result dispatch.BackendResult
	Err    error
}

// New returns a Backend answering every tool with a single text part.
func New() *Backend {
	return &Backend{
		responses: make(map[string]Response),
		Default:   Response{Result: dispatch.BackendResult{Content: []string{`{"status":"ok"}`}}},
	}
}

// On scripts the reply for tool.
func (b *Backend) On(tool string, r Response) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[tool] = r
	return b
}

// Call implements dispatch.Backend.
func (b *Backend) Call(_ context.Context, c dispatch.Call) (dispatch.BackendResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.Args = maps.Clone(c.Args)
	b.calls = append(b.calls, c)
	r, ok := b.responses[c.Tool]
	if !ok {
		r = b.Default
	}
	return r.Result, r.Err
}

// Calls returns a copy of the recorded calls.
func (b *Backend) Calls() []dispatch.Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]dispatch.Call(nil), b.calls...)
}

// SetHealthErr scripts the HealthCheck result.
func (b *Backend) SetHealthErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthErr = err
}

// HealthCheck reports the scripted health error.
func (b *Backend) HealthCheck(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.healthErr
}
