package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/scalegate/internal/dispatch"
	"github.com/flemzord/scalegate/internal/gate"
	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/router"
)

// Error renders any pipeline error. Routing and gate errors get actionable
// text; anything else is shown as a generic failure.
func Error(err error) string {
	if err == nil {
		return ""
	}

	var (
		noHandler *router.NoHandlerError
		ambiguous *router.AmbiguousIntentError
		missing   *router.MissingParameterError
		persona   *router.PersonaError
		dispErr   *dispatch.DispatchError
		toolErr   *dispatch.ToolError
	)
	switch {
	case errors.As(err, &noHandler):
		if noHandler.Intent == intent.Unknown {
			return ClarificationPrompt("")
		}
		if noHandler.Handler != "" {
			return fmt.Sprintf("**Unavailable:** the %s handler is disabled, so I can't do `%s` right now.", noHandler.Handler, noHandler.Intent)
		}
		return fmt.Sprintf("**Unsupported:** I don't have a handler for `%s`.", noHandler.Intent)

	case errors.As(err, &ambiguous):
		return ambiguity(ambiguous)

	case errors.As(err, &missing):
		return fmt.Sprintf("**Missing information:** `%s` needs a %s. Please include it in your request.", missing.Tool, missing.Field)

	case errors.Is(err, router.ErrInvalidParameter):
		return failure("Invalid parameter", err)

	case errors.As(err, &persona):
		return fmt.Sprintf("**Not permitted:** persona `%s` may not use the %s handler.", persona.Persona, persona.Handler)

	case errors.Is(err, dispatch.ErrNotWhitelisted):
		return "**Not permitted:** that tool is outside the handler's whitelist. The request was blocked and logged."

	case errors.As(err, &toolErr):
		return failure("Tool failed", errors.New(toolErr.Message))

	case errors.As(err, &dispErr):
		return failure("Backend error", dispErr.Cause)

	case errors.Is(err, gate.ErrNotFound):
		return "**Unknown confirmation:** no pending request has that id."
	case errors.Is(err, gate.ErrSessionMismatch):
		return "**Not permitted:** that confirmation belongs to another session."
	case errors.Is(err, gate.ErrExpired):
		return "**Expired:** that confirmation timed out. Send the request again to get a new confirmation id."
	case errors.Is(err, gate.ErrAlreadyResolved):
		return "**Already resolved:** that confirmation was already answered."
	case errors.Is(err, gate.ErrAcknowledgementMismatch):
		return failure("Acknowledgement required", err)

	default:
		return failure("Error", err)
	}
}

func ambiguity(e *router.AmbiguousIntentError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I'm not sure what you meant (confidence %.0f%%).", e.Confidence*100)
	if len(e.Candidates) > 0 {
		b.WriteString(" Did you mean:\n")
		for _, c := range e.Candidates {
			fmt.Fprintf(&b, "\n• %s", describe(c))
		}
		b.WriteString("\n\nPlease rephrase with more detail.")
	} else {
		b.WriteString(" Please rephrase with more detail.")
	}
	return b.String()
}

func describe(t intent.Tag) string {
	for _, info := range intent.Vocabulary() {
		if info.Tag == t {
			return fmt.Sprintf("`%s`: %s", t, info.Description)
		}
	}
	return fmt.Sprintf("`%s`", t)
}

func failure(label string, err error) string {
	return fmt.Sprintf("**❌ %s**\n\n**Details:** %v", label, err)
}
