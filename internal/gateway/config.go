package gateway

import "time"

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// OriginPatterns lists hosts allowed to open /v1/ws from a browser.
	// Empty allows same-origin only.
	OriginPatterns []string `yaml:"origin_patterns"`

	// MaxBodyBytes caps request bodies on the API routes.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TrustClientPersona honours the persona named in request bodies and
	// websocket frames. It only applies when auth is not configured; an
	// authenticated caller always acts as the persona bound to its
	// credentials.
	TrustClientPersona bool `yaml:"trust_client_persona"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 10
	}
}

// AuthConfig configures authentication for the API and admin endpoints.
// BearerPersona and BasicPersona bind each credential to the persona it
// acts as; an unbound credential gets the pipeline's default persona.
type AuthConfig struct {
	BearerToken   string `yaml:"bearer_token"`
	BearerPersona string `yaml:"bearer_persona"`
	BasicUser     string `yaml:"basic_user"`
	BasicPass     string `yaml:"basic_pass"`
	BasicPersona  string `yaml:"basic_persona"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// personaFor returns the persona bound to an authentication scheme.
func (a AuthConfig) personaFor(scheme string) string {
	switch scheme {
	case schemeBearer:
		return a.BearerPersona
	case schemeBasic:
		return a.BasicPersona
	default:
		return ""
	}
}

// Secrets returns the configured credentials for log redaction.
func (a AuthConfig) Secrets() []string {
	var out []string
	for _, s := range []string{a.BearerToken, a.BasicPass} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
