package gateway

import "sync/atomic"

// Metrics tracks gateway-level counters using atomic operations for lock-free concurrency.
type Metrics struct {
	messages      atomic.Int64
	confirmations atomic.Int64
	errors        atomic.Int64
	wsSessions    atomic.Int64
}

// RecordMessage records an inbound utterance.
func (m *Metrics) RecordMessage() {
	m.messages.Add(1)
}

// RecordConfirmation records a confirm or reject reply.
func (m *Metrics) RecordConfirmation() {
	m.confirmations.Add(1)
}

// RecordError records a response that carried an error.
func (m *Metrics) RecordError() {
	m.errors.Add(1)
}

// wsOpened and wsClosed track live WebSocket sessions.
func (m *Metrics) wsOpened() { m.wsSessions.Add(1) }
func (m *Metrics) wsClosed() { m.wsSessions.Add(-1) }

// Snapshot returns a consistent point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Messages:      m.messages.Load(),
		Confirmations: m.confirmations.Load(),
		Errors:        m.errors.Load(),
		WSSessions:    m.wsSessions.Load(),
	}
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	Messages      int64 `json:"messages"`
	Confirmations int64 `json:"confirmations"`
	Errors        int64 `json:"errors"`
	WSSessions    int64 `json:"ws_sessions"`
}
