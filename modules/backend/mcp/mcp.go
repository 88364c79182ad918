// Package mcpbackend executes tools on a remote MCP server over the
// streamable HTTP transport.
package mcpbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/flemzord/scalegate/internal/core"
	"github.com/flemzord/scalegate/internal/dispatch"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Backend{})
}

// ServiceName is the service registry key of the dispatch backend.
const ServiceName = "dispatch.backend"

// ClientVersion is reported to the server during initialization.
var ClientVersion = "dev"

// ErrDomainMismatch is returned for calls addressed to another domain.
var ErrDomainMismatch = errors.New("backend.mcp: call domain does not match configured domain")

// Backend is a dispatch.Backend speaking MCP. The session is opened on
// first use and dropped after a transport error so the next call
// reconnects. Calls are never retried.
type Backend struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	client *client.Client
}

// New creates a Backend outside the module system.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return &Backend{config: cfg, logger: logger}, nil
}

// ModuleInfo implements core.Module.
func (b *Backend) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "backend.mcp",
		New: func() core.Module { return &Backend{} },
	}
}

// Configure implements core.Configurable.
func (b *Backend) Configure(node *yaml.Node) error {
	return node.Decode(&b.config)
}

// Provision implements core.Provisioner.
func (b *Backend) Provision(ctx *core.AppContext) error {
	b.config.defaults()
	b.logger = ctx.Logger
	ctx.RegisterService(ServiceName, b)
	return nil
}

// Validate implements core.Validator.
func (b *Backend) Validate() error {
	return b.config.validate()
}

// Stop implements core.Stopper.
func (b *Backend) Stop(_ context.Context) error {
	b.mu.Lock()
	c := b.client
	b.client = nil
	b.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

// Domain returns the configured tenant domain.
func (b *Backend) Domain() string { return b.config.Domain }

// Call implements dispatch.Backend.
func (b *Backend) Call(ctx context.Context, call dispatch.Call) (dispatch.BackendResult, error) {
	if call.Domain != "" && call.Domain != b.config.Domain {
		return dispatch.BackendResult{}, fmt.Errorf("%w: %q", ErrDomainMismatch, call.Domain)
	}
	c, err := b.session(ctx)
	if err != nil {
		return dispatch.BackendResult{}, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = call.Tool
	req.Params.Arguments = call.Args

	b.logger.Debug("backend.mcp: calling tool", "tool", call.Tool)
	res, err := c.CallTool(ctx, req)
	if err != nil {
		b.drop(c)
		return dispatch.BackendResult{}, fmt.Errorf("backend.mcp: call %s: %w", call.Tool, err)
	}
	return dispatch.BackendResult{Content: contentText(res.Content), IsError: res.IsError}, nil
}

// Tools lists the tool names the server exposes.
func (b *Backend) Tools(ctx context.Context) ([]string, error) {
	c, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		b.drop(c)
		return nil, fmt.Errorf("backend.mcp: list tools: %w", err)
	}
	names := make([]string, 0, len(res.Tools))
	for _, t := range res.Tools {
		names = append(names, t.Name)
	}
	return names, nil
}

// HealthCheck reports whether the server answers a tool listing.
func (b *Backend) HealthCheck(ctx context.Context) error {
	_, err := b.Tools(ctx)
	return err
}

func (b *Backend) session(ctx context.Context) (*client.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}

	c, err := client.NewStreamableHttpClient(b.config.URL,
		transport.WithHTTPHeaders(b.config.headers()),
		transport.WithHTTPTimeout(b.config.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("backend.mcp: create client: %w", err)
	}
	// The session outlives the request that opened it.
	if err := c.Start(context.WithoutCancel(ctx)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("backend.mcp: start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "scalegate", Version: ClientVersion}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("backend.mcp: initialize: %w", err)
	}

	b.logger.Info("backend.mcp: session opened", "url", b.config.URL, "domain", b.config.Domain)
	b.client = c
	return c, nil
}

// drop discards c if it is still the current session.
func (b *Backend) drop(c *client.Client) {
	b.mu.Lock()
	if b.client == c {
		b.client = nil
	}
	b.mu.Unlock()
	_ = c.Close()
}

// contentText flattens MCP content to text parts. Non-text content is
// kept as its JSON encoding.
func contentText(contents []mcp.Content) []string {
	out := make([]string, 0, len(contents))
	for _, c := range contents {
		switch v := c.(type) {
		case mcp.TextContent:
			out = append(out, v.Text)
		case *mcp.TextContent:
			out = append(out, v.Text)
		default:
			raw, err := json.Marshal(c)
			if err != nil {
				continue
			}
			out = append(out, string(raw))
		}
	}
	return out
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Compile-time interface assertions.
var (
	_ core.Module       = (*Backend)(nil)
	_ core.Configurable = (*Backend)(nil)
	_ core.Provisioner  = (*Backend)(nil)
	_ core.Validator    = (*Backend)(nil)
	_ core.Stopper      = (*Backend)(nil)
	_ dispatch.Backend  = (*Backend)(nil)
)
