// Package openaireason classifies utterances with any API that implements
// the OpenAI chat completions interface (vLLM, Ollama, LiteLLM, ...).
package openaireason

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flemzord/scalegate/internal/core"
	"github.com/flemzord/scalegate/internal/intent"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Reasoner{})
}

// ServiceName is the service registry key of the reasoner.
const ServiceName = "intent.reasoner"

const maxErrorBodySize = 4 << 10

// Sentinel errors.
var (
	ErrBackendDown    = errors.New("reasoning.openai: backend unavailable")
	ErrAuthentication = errors.New("reasoning.openai: authentication failed")
	ErrMalformed      = errors.New("reasoning.openai: malformed answer")
)

// Reasoner implements intent.Reasoner over chat completions.
type Reasoner struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Reasoner outside the module system.
func New(cfg Config, logger *slog.Logger) (*Reasoner, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return &Reasoner{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// ModuleInfo implements core.Module.
func (r *Reasoner) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "reasoning.openai",
		New: func() core.Module { return &Reasoner{} },
	}
}

// Configure implements core.Configurable.
func (r *Reasoner) Configure(node *yaml.Node) error {
	if err := node.Decode(&r.config); err != nil {
		return err
	}
	r.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (r *Reasoner) Provision(ctx *core.AppContext) error {
	r.config.defaults()
	r.logger = ctx.Logger
	r.client = &http.Client{Timeout: r.config.Timeout}
	ctx.RegisterService(ServiceName, r)
	return nil
}

// Validate implements core.Validator.
func (r *Reasoner) Validate() error {
	return r.config.validate()
}

// APIKey returns the configured key so callers can register it for redaction.
func (r *Reasoner) APIKey() string { return r.config.APIKey }

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// answer is the JSON object the model is instructed to return.
type answer struct {
	Intent        string         `json:"intent"`
	Params        map[string]any `json:"params"`
	Confidence    float64        `json:"confidence"`
	Clarification string         `json:"clarification"`
}

// Reason implements intent.Reasoner.
func (r *Reasoner) Reason(ctx context.Context, req intent.ReasoningRequest) (intent.ReasoningResult, error) {
	body, err := json.Marshal(chatRequest{
		Model: r.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req.Vocabulary)},
			{Role: "user", Content: req.Utterance},
		},
		MaxTokens:      r.config.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return intent.ReasoningResult{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return intent.ReasoningResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}
	for k, v := range r.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return intent.ReasoningResult{}, fmt.Errorf("%w: %w", ErrBackendDown, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return intent.ReasoningResult{}, handleErrorResponse(resp)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return intent.ReasoningResult{}, fmt.Errorf("%w: decode response: %w", ErrMalformed, err)
	}
	if len(cr.Choices) == 0 {
		return intent.ReasoningResult{}, fmt.Errorf("%w: no choices", ErrMalformed)
	}

	a, err := parseAnswer(cr.Choices[0].Message.Content)
	if err != nil {
		return intent.ReasoningResult{}, err
	}
	r.logger.Debug("reasoning.openai: classified", "intent", a.Intent, "confidence", a.Confidence)
	return intent.ReasoningResult{
		Tag:           intent.Tag(a.Intent),
		Params:        a.Params,
		Confidence:    a.Confidence,
		Clarification: a.Clarification,
	}, nil
}

// parseAnswer decodes the model's JSON, tolerating a markdown code fence.
func parseAnswer(content string) (answer, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	var a answer
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return answer{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return a, nil
}

func systemPrompt(vocab []intent.TagInfo) string {
	var b strings.Builder
	b.WriteString("You route requests for an IBM Storage Scale cluster assistant.\n")
	b.WriteString("Classify the user's message into exactly one intent from this list:\n")
	for _, v := range vocab {
		fmt.Fprintf(&b, "- %s: %s\n", v.Tag, v.Description)
	}
	b.WriteString("\nReply with one JSON object and nothing else:\n")
	b.WriteString(`{"intent": "<intent>", "params": {"filesystem": "...", "fileset": "...", "name": "...", "nodes": "..."}, "confidence": 0.0, "clarification": ""}`)
	b.WriteString("\nOnly include params the user actually gave. Use intent UNKNOWN when nothing fits. ")
	b.WriteString("When the request is plausible but underspecified, use NEEDS_CLARIFICATION and put a short question in clarification.")
	return b.String()
}

func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", ErrAuthentication, resp.StatusCode, body)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", ErrBackendDown, resp.StatusCode, body)
	default:
		return fmt.Errorf("reasoning.openai: unexpected status %d: %s", resp.StatusCode, body)
	}
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Compile-time interface assertions.
var (
	_ core.Module       = (*Reasoner)(nil)
	_ core.Configurable = (*Reasoner)(nil)
	_ core.Provisioner  = (*Reasoner)(nil)
	_ core.Validator    = (*Reasoner)(nil)
	_ intent.Reasoner   = (*Reasoner)(nil)
)
