package openaireason

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the configuration for an OpenAI-compatible reasoning backend.
type Config struct {
	BaseURL   string            `yaml:"base_url"`
	APIKey    string            `yaml:"api_key"`
	Model     string            `yaml:"model"`
	MaxTokens int               `yaml:"max_tokens"`
	Headers   map[string]string `yaml:"headers"`
	Timeout   time.Duration     `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 512
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errMissingField("base_url")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("reasoning.openai: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("reasoning.openai: base_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Model == "" {
		return errMissingField("model")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("reasoning.openai: max_tokens must not be negative")
	}
	return nil
}

func errMissingField(field string) error {
	return fmt.Errorf("reasoning.openai: %s is required", field)
}
