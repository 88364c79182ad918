package mcpbackend

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultDomainHeader carries the tenant domain on every backend request.
const DefaultDomainHeader = "X-Scale-Domain"

// Config holds the configuration of the MCP backend.
type Config struct {
	URL          string            `yaml:"url"`
	Domain       string            `yaml:"domain"`
	DomainHeader string            `yaml:"domain_header"`
	Headers      map[string]string `yaml:"headers"`
	Timeout      time.Duration     `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = "http://127.0.0.1:8000/mcp"
	}
	if c.Domain == "" {
		c.Domain = "StorageScaleDomain"
	}
	if c.DomainHeader == "" {
		c.DomainHeader = DefaultDomainHeader
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("backend.mcp: url is not valid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.mcp: url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("backend.mcp: timeout must not be negative")
	}
	return nil
}

// headers returns the static request headers, domain header included.
func (c *Config) headers() map[string]string {
	h := make(map[string]string, len(c.Headers)+1)
	for k, v := range c.Headers {
		h[k] = v
	}
	h[c.DomainHeader] = c.Domain
	return h
}
