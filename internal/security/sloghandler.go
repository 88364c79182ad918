package security

import (
	"context"
	"log/slog"
)

// RedactingHandler scrubs bearer tokens, API keys and other secrets known
// to its Redactor from log records before the wrapped handler formats them.
type RedactingHandler struct {
	next     slog.Handler
	redactor *Redactor
}

var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler wraps next.
func NewRedactingHandler(next slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{next: next, redactor: redactor}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	attrs := make([]slog.Attr, 0, rec.NumAttrs())
	rec.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	clean := slog.NewRecord(rec.Time, rec.Level, h.redactor.Redact(rec.Message), rec.PC)
	clean.AddAttrs(h.scrub(attrs)...)
	return h.next.Handle(ctx, clean)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewRedactingHandler(h.next.WithAttrs(h.scrub(attrs)), h.redactor)
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return NewRedactingHandler(h.next.WithGroup(name), h.redactor)
}

func (h *RedactingHandler) scrub(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: a.Key, Value: h.scrubValue(a.Value.Resolve())}
	}
	return out
}

// scrubValue redacts strings, recurses into groups, and flattens any other
// value (errors, URLs, request args) to its redacted string form only when
// redaction changed it.
func (h *RedactingHandler) scrubValue(v slog.Value) slog.Value {
	switch v.Kind() {
	case slog.KindString:
		return slog.StringValue(h.redactor.Redact(v.String()))
	case slog.KindGroup:
		return slog.GroupValue(h.scrub(v.Group())...)
	case slog.KindAny:
		s := v.String()
		if r := h.redactor.Redact(s); r != s {
			return slog.StringValue(r)
		}
	}
	return v
}
