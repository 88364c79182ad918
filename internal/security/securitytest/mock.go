// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"sync"

	"github.com/flemzord/scalegate/internal/security"
)

// NewTestAuditLogger creates an AuditLogger that keeps events in memory.
// The returned function snapshots the events logged so far.
func NewTestAuditLogger() (*security.AuditLogger, func() []security.AuditEvent) {
	var (
		mu     sync.Mutex
		events []security.AuditEvent
	)
	logger := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	return logger, func() []security.AuditEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]security.AuditEvent(nil), events...)
	}
}

// OfType filters events by type.
func OfType(events []security.AuditEvent, t security.EventType) []security.AuditEvent {
	var out []security.AuditEvent
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
