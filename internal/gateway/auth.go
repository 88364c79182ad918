package gateway

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/scalegate/internal/security"
)

const (
	schemeBearer = "bearer"
	schemeBasic  = "basic"
)

// principal is the authenticated caller of a request.
type principal struct {
	scheme  string
	persona string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// authMiddleware admits requests carrying the configured bearer token or
// basic credentials and binds the matching persona to the request context.
// Websocket upgrades may pass the token as the access_token query
// parameter since browsers cannot set headers there. Every decision is
// written to the audit log.
func authMiddleware(cfg AuthConfig, audit *security.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, reason := cfg.authenticate(r)
			if scheme == "" {
				audit.Log(authEvent(security.EventAuthFailure, r, reason, ""))
				w.Header().Set("WWW-Authenticate", `Bearer realm="scalegate"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			p := principal{scheme: scheme, persona: cfg.personaFor(scheme)}
			audit.Log(authEvent(security.EventAuthSuccess, r, scheme, p.persona))
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

// authenticate returns the scheme that matched, or an empty scheme and the
// reason for refusal.
func (a AuthConfig) authenticate(r *http.Request) (scheme, reason string) {
	header := r.Header.Get("Authorization")
	if header == "" && isUpgrade(r) {
		if tok := r.URL.Query().Get("access_token"); tok != "" {
			header = "Bearer " + tok
		}
	}
	if header == "" {
		return "", "missing authorization header"
	}
	if tok, ok := strings.CutPrefix(header, "Bearer "); ok && a.BearerToken != "" && secureEqual(tok, a.BearerToken) {
		return schemeBearer, ""
	}
	if a.BasicUser != "" && a.BasicPass != "" {
		if user, pass, ok := r.BasicAuth(); ok && secureEqual(user, a.BasicUser) && secureEqual(pass, a.BasicPass) {
			return schemeBasic, ""
		}
	}
	return "", "invalid credentials"
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func authEvent(typ security.EventType, r *http.Request, detail, persona string) security.AuditEvent {
	return security.AuditEvent{
		Type:    typ,
		Persona: persona,
		Detail:  detail,
		Metadata: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	}
}

// persona resolves who a request acts as. An authenticated caller gets the
// persona bound to its credentials whatever the body says. Without auth
// the requested persona is used only when TrustClientPersona is set. An
// empty result leaves the choice to the pipeline's default.
func (g *Gateway) persona(ctx context.Context, requested string) string {
	if p, ok := principalFrom(ctx); ok {
		if requested != "" && !strings.EqualFold(requested, p.persona) {
			g.logger.Debug("gateway: ignoring client persona", "requested", requested, "bound", p.persona)
		}
		return p.persona
	}
	if g.config.TrustClientPersona && !g.config.Auth.IsConfigured() {
		return requested
	}
	return ""
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
