// Package router resolves a classified intent into a concrete handler,
// tool, and argument set, enforcing persona access per handler.
package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/scalegate/internal/intent"
)

// Sentinel errors for routing. Structured errors below unwrap to these.
var (
	// ErrNoHandlerForIntent means no enabled handler serves the intent.
	ErrNoHandlerForIntent = errors.New("router: no handler for intent")

	// ErrAmbiguousIntent means classifier confidence is under the threshold.
	ErrAmbiguousIntent = errors.New("router: ambiguous intent")

	// ErrMissingParameter means a required tool argument was not supplied.
	ErrMissingParameter = errors.New("router: missing parameter")

	// ErrInvalidParameter means an argument failed schema validation.
	ErrInvalidParameter = errors.New("router: invalid parameter")

	// ErrPersonaDenied means the caller's persona may not use the handler.
	ErrPersonaDenied = errors.New("router: persona not permitted")

	// ErrInvalidTable means the intent table references an unknown tool.
	ErrInvalidTable = errors.New("router: invalid intent table")
)

// NoHandlerError reports an intent that maps to no enabled handler.
type NoHandlerError struct {
	Intent  intent.Tag
	Handler string // set when the handler exists but is disabled
}

func (e *NoHandlerError) Error() string {
	if e.Handler != "" {
		return fmt.Sprintf("router: no handler for intent %s (handler %s is disabled)", e.Intent, e.Handler)
	}
	return fmt.Sprintf("router: no handler for intent %s", e.Intent)
}

// Unwrap returns ErrNoHandlerForIntent.
func (e *NoHandlerError) Unwrap() error { return ErrNoHandlerForIntent }

// AmbiguousIntentError asks the caller to disambiguate. Candidates lists
// routable intents, best first, starting with the classified one.
type AmbiguousIntentError struct {
	Intent     intent.Tag
	Confidence float64
	Threshold  float64
	Candidates []intent.Tag
}

func (e *AmbiguousIntentError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = string(c)
	}
	return fmt.Sprintf("router: ambiguous intent %s (confidence %.2f < %.2f; candidates: %s)",
		e.Intent, e.Confidence, e.Threshold, strings.Join(names, ", "))
}

// Unwrap returns ErrAmbiguousIntent.
func (e *AmbiguousIntentError) Unwrap() error { return ErrAmbiguousIntent }

// MissingParameterError names the first required argument that is absent.
type MissingParameterError struct {
	Tool  string
	Field string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("router: missing parameter %q for %s", e.Field, e.Tool)
}

// Unwrap returns ErrMissingParameter.
func (e *MissingParameterError) Unwrap() error { return ErrMissingParameter }

// PersonaError reports a persona that the handler does not admit.
type PersonaError struct {
	Persona string
	Handler string
}

func (e *PersonaError) Error() string {
	return fmt.Sprintf("router: persona %q may not use handler %s", e.Persona, e.Handler)
}

// Unwrap returns ErrPersonaDenied.
func (e *PersonaError) Unwrap() error { return ErrPersonaDenied }
