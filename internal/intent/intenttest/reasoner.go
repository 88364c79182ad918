// Package intenttest provides test doubles for the intent package.
package intenttest

import (
	"context"
	"sync"

	"github.com/flemzord/scalegate/internal/intent"
)

// Reasoner is a scripted intent.Reasoner.
type Reasoner struct {
	mu     sync.Mutex
	Result intent.ReasoningResult
	Err    error
	calls  []intent.ReasoningRequest
}

var _ intent.Reasoner = (*Reasoner)(nil)

// Reason records the request and returns the scripted result.
func (r *Reasoner) Reason(_ context.Context, req intent.ReasoningRequest) (intent.ReasoningResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	return r.Result, r.Err
}

// Calls returns the recorded requests.
func (r *Reasoner) Calls() []intent.ReasoningRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]intent.ReasoningRequest, len(r.calls))
	copy(out, r.calls)
	return out
}
