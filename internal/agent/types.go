// Package agent runs the request pipeline: an utterance is classified,
// routed to a handler's tool, held at the confirmation gate when the tool
// is risky, dispatched, and rendered as a reply.
package agent

import (
	"github.com/flemzord/scalegate/internal/gate"
	"github.com/flemzord/scalegate/internal/intent"
)

// Kind describes what a Response carries.
type Kind string

// Response kinds.
const (
	KindResult        Kind = "result"
	KindConfirmation  Kind = "confirmation_required"
	KindCancelled     Kind = "cancelled"
	KindHelp          Kind = "help"
	KindClarification Kind = "clarification"
	KindPending       Kind = "pending"
	KindError         Kind = "error"
)

// Request is one inbound utterance.
type Request struct {
	SessionID string `json:"session_id"`
	// Persona selects which handlers the caller may use. Empty means the
	// pipeline's default persona.
	Persona string `json:"persona,omitempty"`
	Text    string `json:"text"`
}

// Response is the outcome of a pipeline step. Text is always set and
// ready to show to the user; the other fields are for programmatic callers.
type Response struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`

	Intent       *intent.Intent      `json:"intent,omitempty"`
	Tool         string              `json:"tool,omitempty"`
	Content      []string            `json:"content,omitempty"`
	Confirmation *gate.Confirmation  `json:"confirmation,omitempty"`
	Pending      []gate.Confirmation `json:"pending,omitempty"`

	// Err is the underlying failure when Kind is KindError.
	Err error `json:"-"`
	// ErrorCode is a stable machine-readable name for Err.
	ErrorCode string `json:"error,omitempty"`
}
