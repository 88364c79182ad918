package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/scalegate/internal/gate"
	"github.com/flemzord/scalegate/internal/policy"
	auditsqlite "github.com/flemzord/scalegate/modules/audit/sqlite"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// fakeScale is an in-process MCP server that records tool calls.
type fakeScale struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeScale) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func newFakeScale(t *testing.T) (*fakeScale, string) {
	t.Helper()
	f := &fakeScale{}
	s := server.NewMCPServer("fake-scale", "1.0.0", server.WithToolCapabilities(false))
	for _, name := range []string{"list_filesystems", "stop_nodes"} {
		s.AddTool(mcp.NewTool(name), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			f.mu.Lock()
			f.calls = append(f.calls, name)
			f.mu.Unlock()
			raw, err := json.Marshal(req.GetArguments())
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(raw)), nil
		})
	}
	ts := httptest.NewServer(server.NewStreamableHTTPServer(s))
	t.Cleanup(ts.Close)
	return f, ts.URL + "/mcp"
}

func writeConfig(t *testing.T, body string) (cfgPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "scalegate.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: \"1\"\npersona: admin\n"+body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, dir
}

func backendConfig(url string) string {
	return "modules:\n  backend.mcp:\n    url: " + url + "\n    timeout: 5s\n"
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// scriptedPrompter answers prompts from fixed lists.
type scriptedPrompter struct {
	lines   []string
	approve bool
	asked   []gate.Confirmation
}

func (p *scriptedPrompter) Line(string) (string, error) {
	if len(p.lines) == 0 {
		return "", errQuit
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptedPrompter) Confirm(c gate.Confirmation) (string, bool, error) {
	p.asked = append(p.asked, c)
	if !p.approve {
		return "", false, nil
	}
	return c.AckPhrase, true, nil
}

func usePrompter(t *testing.T, p prompter) {
	t.Helper()
	prev := newPrompter
	newPrompter = func() prompter { return p }
	t.Cleanup(func() { newPrompter = prev })
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"scalegate dev", "backend.mcp", "audit.sqlite", "gateway.http", "reasoning.openai"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTools_JSON(t *testing.T) {
	out, err := execute(t, "tools", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var rows []toolRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	byTool := make(map[string]toolRow, len(rows))
	for _, r := range rows {
		byTool[r.Tool] = r
	}
	stop, ok := byTool["stop_nodes"]
	if !ok {
		t.Fatalf("stop_nodes missing: %+v", rows)
	}
	if stop.Tier != policy.TierHigh || stop.Handler != policy.HandlerAdmin || stop.Confirmation != "acknowledge stop_nodes" {
		t.Errorf("stop_nodes = %+v", stop)
	}
	if byTool["list_filesystems"].Confirmation != "none" {
		t.Errorf("list_filesystems = %+v", byTool["list_filesystems"])
	}
}

func TestTools_Table(t *testing.T) {
	out, err := execute(t, "tools")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"HANDLER", "set_quota", "MEDIUM"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestConfigCheck(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "modules:\n"+
		"  backend.mcp:\n    url: http://127.0.0.1:1/mcp\n"+
		"  gateway.http:\n    auth:\n      bearer_token: very-secret-token-123\n")

	out, err := execute(t, "config", "check", cfgPath, "--show", "--data-dir", dataDir)
	if err != nil {
		t.Fatalf("config check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration OK") || !strings.Contains(out, "gateway.http") {
		t.Errorf("output = %s", out)
	}
	if strings.Contains(out, "very-secret-token-123") {
		t.Errorf("secret printed:\n%s", out)
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	cfgPath, _ := writeConfig(t, "classifier:\n  strategy: telepathy\n")
	if _, err := execute(t, "config", "check", cfgPath); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestClassify_JSON(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, backendConfig("http://127.0.0.1:1/mcp"))

	out, err := execute(t, "classify", "--config", cfgPath, "--data-dir", dataDir, "--json", "stop", "node", "c1n2")
	if err != nil {
		t.Fatalf("classify: %v\n%s", err, out)
	}
	var got classification
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Tool != "stop_nodes" || got.Tier != policy.TierHigh || got.Args["nodes"] != "c1n2" {
		t.Errorf("classification = %+v", got)
	}
}

func TestClassify_Overview(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, backendConfig("http://127.0.0.1:1/mcp"))

	out, err := execute(t, "classify", "--config", cfgPath, "--data-dir", dataDir, "cluster health overview")
	if err != nil {
		t.Fatalf("classify: %v\n%s", err, out)
	}
	want := "overview:   get_nodes_status, get_node_health_states, get_filesystem_health_states (LOW)"
	if !strings.Contains(out, "intent:     health_overview") || !strings.Contains(out, want) {
		t.Errorf("output:\n%s", out)
	}
}

func TestClassify_PersonaDenied(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, backendConfig("http://127.0.0.1:1/mcp"))

	out, err := execute(t, "classify", "--config", cfgPath, "--data-dir", dataDir, "--persona", "sre", "stop node c1n2")
	if err != nil {
		t.Fatalf("classify: %v\n%s", err, out)
	}
	if !strings.Contains(out, "routing:") {
		t.Errorf("expected a routing error:\n%s", out)
	}
}

func TestAsk_LowTier(t *testing.T) {
	fake, url := newFakeScale(t)
	cfgPath, dataDir := writeConfig(t, backendConfig(url))
	p := &scriptedPrompter{}
	usePrompter(t, p)

	out, err := execute(t, "ask", "--config", cfgPath, "--data-dir", dataDir, "--plain", "list filesystems")
	if err != nil {
		t.Fatalf("ask: %v\n%s", err, out)
	}
	if !slices.Equal(fake.called(), []string{"list_filesystems"}) {
		t.Errorf("calls = %v", fake.called())
	}
	if len(p.asked) != 0 {
		t.Errorf("low tier call prompted: %+v", p.asked)
	}
}

func TestAsk_HighTierConfirmed(t *testing.T) {
	fake, url := newFakeScale(t)
	cfgPath, dataDir := writeConfig(t, backendConfig(url))
	p := &scriptedPrompter{approve: true}
	usePrompter(t, p)

	out, err := execute(t, "ask", "--config", cfgPath, "--data-dir", dataDir, "--plain", "stop node c1n2")
	if err != nil {
		t.Fatalf("ask: %v\n%s", err, out)
	}
	if len(p.asked) != 1 || p.asked[0].AckPhrase != "stop_nodes" {
		t.Fatalf("asked = %+v", p.asked)
	}
	if !slices.Equal(fake.called(), []string{"stop_nodes"}) {
		t.Errorf("calls = %v", fake.called())
	}
}

func TestAsk_HighTierCancelled(t *testing.T) {
	fake, url := newFakeScale(t)
	cfgPath, dataDir := writeConfig(t, backendConfig(url))
	usePrompter(t, &scriptedPrompter{})

	out, err := execute(t, "ask", "--config", cfgPath, "--data-dir", dataDir, "--plain", "stop node c1n2")
	if err != nil {
		t.Fatalf("ask: %v\n%s", err, out)
	}
	if len(fake.called()) != 0 {
		t.Errorf("cancelled call ran: %v", fake.called())
	}
}

func TestAsk_RoutingErrorFails(t *testing.T) {
	_, url := newFakeScale(t)
	cfgPath, dataDir := writeConfig(t, backendConfig(url))
	usePrompter(t, &scriptedPrompter{})

	_, err := execute(t, "ask", "--config", cfgPath, "--data-dir", dataDir, "--plain", "--persona", "sre", "stop node c1n2")
	if err == nil || !strings.Contains(err.Error(), "persona_denied") {
		t.Fatalf("err = %v, want persona_denied", err)
	}
}

func TestChat_Loop(t *testing.T) {
	fake, url := newFakeScale(t)
	cfgPath, dataDir := writeConfig(t, backendConfig(url))
	usePrompter(t, &scriptedPrompter{
		lines:   []string{"help", "", "list filesystems", "stop node c1n2"},
		approve: true,
	})

	out, err := execute(t, "chat", "--config", cfgPath, "--data-dir", dataDir, "--plain", "--session", "ops-1")
	if err != nil {
		t.Fatalf("chat: %v\n%s", err, out)
	}
	if !strings.Contains(out, "session ops-1") {
		t.Errorf("missing banner:\n%s", out)
	}
	if !slices.Equal(fake.called(), []string{"list_filesystems", "stop_nodes"}) {
		t.Errorf("calls = %v", fake.called())
	}
}

func TestAuditList(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "audit.db")
	ctx := context.Background()

	store, err := auditsqlite.Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	for _, c := range []gate.Confirmation{
		{ID: "c-1", SessionID: "s1", Tool: "stop_nodes", Tier: policy.TierHigh, Status: gate.StatusConfirmed, CreatedAt: now.Add(-time.Hour), ExpiresAt: now, ResolvedAt: now.Add(-50 * time.Minute)},
		{ID: "c-2", SessionID: "s2", Tool: "set_quota", Tier: policy.TierMedium, Status: gate.StatusRejected, CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(4 * time.Minute), ResolvedAt: now},
	} {
		if err := store.Record(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "audit", "list", "--db", dbPath, "--json", "--status", "rejected")
	if err != nil {
		t.Fatalf("audit list: %v\n%s", err, out)
	}
	var got []gate.Confirmation
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].ID != "c-2" {
		t.Errorf("got = %+v", got)
	}

	out, err = execute(t, "audit", "list", "--db", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"c-1", "c-2", "CONFIRMED", "ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestAuditDBPath(t *testing.T) {
	cfgPath, dataDir := writeConfig(t, "")
	got, err := auditDBPath(&globalFlags{configPath: cfgPath, dataDir: dataDir})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dataDir, auditsqlite.DefaultDBFile); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}

	cfgPath, _ = writeConfig(t, "modules:\n  audit.sqlite:\n    path: /var/lib/scalegate/a.db\n")
	got, err = auditDBPath(&globalFlags{configPath: cfgPath})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/var/lib/scalegate/a.db" {
		t.Errorf("path = %q", got)
	}
}

func TestConversation_PromptError(t *testing.T) {
	boom := errors.New("terminal closed")
	c := &conversation{prompt: failingPrompter{err: boom}}
	if err := c.loop(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

type failingPrompter struct{ err error }

func (f failingPrompter) Line(string) (string, error) { return "", f.err }

func (f failingPrompter) Confirm(gate.Confirmation) (string, bool, error) {
	return "", false, f.err
}
