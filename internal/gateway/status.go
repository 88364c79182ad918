package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   int64           `json:"uptime_seconds"`
	Metrics  MetricsSnapshot `json:"metrics"`
	Pending  int             `json:"pending_confirmations"`
	Handlers int             `json:"handlers"`
	Tools    int             `json:"tools"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:  int64(time.Since(g.startedAt) / time.Second),
			Metrics: g.metrics.Snapshot(),
		}
		if g.pending != nil {
			resp.Pending = g.pending.PendingCount()
		}
		if g.catalog != nil {
			resp.Handlers = len(g.catalog.Handlers())
			resp.Tools = len(g.catalog.Tools())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
