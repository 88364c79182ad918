package gateway

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the backend check so /health stays responsive.
const healthCheckTimeout = 3 * time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"` // "ok" or "degraded"
	Backend string `json:"backend"`
	Pending int    `json:"pending_confirmations"`
	Error   string `json:"error,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 if the tool backend answers, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Backend: "unknown"}

		if g.pending != nil {
			resp.Pending = g.pending.PendingCount()
		}

		if g.backend != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := g.backend.HealthCheck(ctx); err != nil {
				resp.Status = "degraded"
				resp.Backend = "unreachable"
				resp.Error = err.Error()
			} else {
				resp.Backend = "ok"
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
