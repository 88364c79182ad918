package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/scalegate/internal/security"
	"github.com/flemzord/scalegate/internal/security/securitytest"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	both := AuthConfig{BearerToken: "my-token", BasicUser: "admin", BasicPass: "pass123"}
	tests := []struct {
		name    string
		cfg     AuthConfig
		prepare func(*http.Request)
		want    int
		event   security.EventType
	}{
		{"valid bearer", both, func(r *http.Request) { r.Header.Set("Authorization", "Bearer my-token") }, http.StatusOK, security.EventAuthSuccess},
		{"wrong bearer", both, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, security.EventAuthFailure},
		{"valid basic", both, func(r *http.Request) { r.SetBasicAuth("admin", "pass123") }, http.StatusOK, security.EventAuthSuccess},
		{"wrong basic", both, func(r *http.Request) { r.SetBasicAuth("admin", "guess") }, http.StatusUnauthorized, security.EventAuthFailure},
		{"missing header", both, func(*http.Request) {}, http.StatusUnauthorized, security.EventAuthFailure},
		{"query token on upgrade", both, func(r *http.Request) {
			r.Header.Set("Upgrade", "websocket")
			r.URL.RawQuery = "access_token=my-token"
		}, http.StatusOK, security.EventAuthSuccess},
		{"query token without upgrade", both, func(r *http.Request) { r.URL.RawQuery = "access_token=my-token" }, http.StatusUnauthorized, security.EventAuthFailure},
		{"basic when only bearer set", AuthConfig{BearerToken: "t"}, func(r *http.Request) { r.SetBasicAuth("admin", "t") }, http.StatusUnauthorized, security.EventAuthFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			audit, events := securitytest.NewTestAuditLogger()
			handler := authMiddleware(tt.cfg, audit)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if rr.Code == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 without WWW-Authenticate challenge")
			}
			got := events()
			if len(got) != 1 || got[0].Type != tt.event {
				t.Fatalf("events = %+v, want one %s", got, tt.event)
			}
			if got[0].Metadata["path"] != "/v1/tools" {
				t.Errorf("path metadata = %q", got[0].Metadata["path"])
			}
		})
	}
}

func TestAuthMiddleware_NilAuditLogger(t *testing.T) {
	t.Parallel()
	handler := authMiddleware(AuthConfig{BearerToken: "tok"}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestAuthConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     AuthConfig
		want    bool
		secrets int
	}{
		{"empty", AuthConfig{}, false, 0},
		{"bearer only", AuthConfig{BearerToken: "tok"}, true, 1},
		{"basic complete", AuthConfig{BasicUser: "u", BasicPass: "p"}, true, 1},
		{"basic partial user", AuthConfig{BasicUser: "u"}, false, 0},
		{"both", AuthConfig{BearerToken: "t", BasicUser: "u", BasicPass: "p"}, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
			if got := len(tt.cfg.Secrets()); got != tt.secrets {
				t.Errorf("len(Secrets()) = %d, want %d", got, tt.secrets)
			}
		})
	}
}

func TestAuthMiddleware_BindsPersona(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{BearerToken: "tok", BearerPersona: "sre", BasicUser: "ops", BasicPass: "pw", BasicPersona: "storage_admin"}
	tests := []struct {
		name    string
		prepare func(*http.Request)
		want    string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok") }, "sre"},
		{"basic", func(r *http.Request) { r.SetBasicAuth("ops", "pw") }, "storage_admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			audit, events := securitytest.NewTestAuditLogger()
			var got principal
			handler := authMiddleware(cfg, audit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = principalFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
			tt.prepare(req)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got.persona != tt.want || got.scheme != tt.name {
				t.Errorf("principal = %+v, want %s/%s", got, tt.name, tt.want)
			}
			if ev := events(); len(ev) != 1 || ev[0].Persona != tt.want {
				t.Errorf("events = %+v", ev)
			}
		})
	}
}
