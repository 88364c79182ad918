package gateway

import (
	"net/http"

	"github.com/flemzord/scalegate/internal/config"
	"github.com/flemzord/scalegate/internal/core"
)

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleGetAllModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetConfig returns the current config with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "config path not set")
			return
		}

		cfg, err := config.Load(g.configPath)
		if err != nil {
			g.logger.Error("config load failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "failed to load config")
			return
		}

		view, err := config.Redacted(cfg, g.redactor)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "failed to render config")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
