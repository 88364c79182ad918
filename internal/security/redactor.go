package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely hold secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|pass|key|credential|authorization)`)

// Redactor replaces secret values in strings and maps with a placeholder.
// Regex patterns catch credential shapes; literals catch the configured
// secrets themselves. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	r.AddLiterals(secret)
}

// AddLiterals adds every non-empty value as a literal secret.
func (r *Redactor) AddLiterals(secrets ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range secrets {
		if s != "" {
			r.literals = append(r.literals, s)
		}
	}
}

// Redact replaces every known secret in s with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, "${1}"+RedactPlaceholder+"${2}")
	}
	return s
}

// RedactMap walks m and replaces values under secret-looking keys. Other
// string values go through Redact. Used when printing configuration.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			m[k] = r.Redact(val)
		}
	}
}

// DefaultPatterns returns patterns for credentials that can reach logs:
// reasoning API keys, HTTP auth headers, and passwords embedded in URLs.
// Capture groups 1 and 2, when present, surround the secret and are kept.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// OpenAI style keys: sk-... with at least 20 chars after the prefix.
		regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{20,}`),
		// Authorization header values.
		regexp.MustCompile(`(?i)(\b(?:bearer|basic)\s+)[a-zA-Z0-9\-._~+/]{8,}=*`),
		// user:password@ in URLs.
		regexp.MustCompile(`(://[^:/@\s]+:)[^@\s/]+(@)`),
	}
}
