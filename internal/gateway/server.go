package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public: no auth required.
	r.Get("/health", g.handleHealth())
	if g.prom != nil {
		r.Handle("/metrics", g.prom.Handler())
	}

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.audit))
		}
		r.Route("/v1", func(r chi.Router) {
			r.With(middleware.RequestSize(g.config.MaxBodyBytes)).Post("/messages", g.handleMessage())
			r.Get("/confirmations", g.handlePending())
			r.With(middleware.RequestSize(g.config.MaxBodyBytes)).Post("/confirmations/{id}/confirm", g.handleConfirm())
			r.With(middleware.RequestSize(g.config.MaxBodyBytes)).Post("/confirmations/{id}/reject", g.handleReject())
			r.Get("/tools", g.handleTools())
			r.Get("/ws", g.handleWebSocket())
		})

		// Admin endpoints are only mounted behind auth.
		if g.config.Auth.IsConfigured() {
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", g.handleGetAllModules())
				r.Get("/config", g.handleGetConfig())
			})
		}
	})

	return r
}
