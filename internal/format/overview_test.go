package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/flemzord/scalegate/internal/dispatch"
)

func TestIssues(t *testing.T) {
	t.Parallel()

	flag := []string{"CRITICAL", "ERROR", "UNHEALTHY"}
	tests := []struct {
		name    string
		content string
		want    []Issue
	}{
		{
			name:    "states envelope",
			content: `{"states":[{"entityName":"c1n2","status":"CRITICAL","reason":"disk down"},{"entityName":"c1n1","status":"HEALTHY"}]}`,
			want:    []Issue{{Entity: "c1n2", Status: "CRITICAL", Reason: "disk down"}},
		},
		{
			name:    "case-insensitive state key",
			content: `[{"name":"gpfs01","state":"error","message":"quorum lost"}]`,
			want:    []Issue{{Entity: "gpfs01", Status: "ERROR", Reason: "quorum lost"}},
		},
		{
			name:    "nested and unnamed",
			content: `{"data":{"nodes":[{"status":"unhealthy"}]}}`,
			want:    []Issue{{Entity: "unknown", Status: "UNHEALTHY"}},
		},
		{
			name:    "nothing flagged",
			content: `[{"name":"a","status":"HEALTHY"}]`,
		},
		{
			name:    "plain text",
			content: "all good",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Issues(decode(tt.content), flag)
			if len(got) != len(tt.want) {
				t.Fatalf("Issues = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("issue %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}

	if got := Issues(decode(`[{"status":"CRITICAL"}]`), nil); got != nil {
		t.Errorf("no flags: got %+v", got)
	}
}

func TestOverview(t *testing.T) {
	t.Parallel()

	sections := []Section{
		{Title: "Node status", Result: dispatch.Result{Content: []string{`[{"nodeName":"c1n1","status":"active"}]`}}},
		{Title: "Node health", Result: dispatch.Result{Content: []string{`[{"entityName":"c1n1","status":"FAILED","reason":"mmfsd down"}]`}}},
		{Title: "Filesystem health", Err: errors.New("connection refused")},
		{Title: "Empty"},
	}
	out := Overview("Cluster health overview", sections, []string{"FAILED"})
	for _, want := range []string{
		"**Cluster health overview**",
		"**Node status:**",
		"1. `c1n1` (active)",
		"**Filesystem health:**\n*Unable to retrieve:* connection refused",
		"**Empty:**\n*No output*",
		"**Detected issues (1):**\n• `c1n1` FAILED: mmfsd down",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIssueSummary(t *testing.T) {
	t.Parallel()

	if got := IssueSummary(nil); got != "**Summary:** no issues detected." {
		t.Errorf("empty = %q", got)
	}

	many := make([]Issue, maxIssues+3)
	for i := range many {
		many[i] = Issue{Entity: "n", Status: "ERROR"}
	}
	got := IssueSummary(many)
	if !strings.Contains(got, "*... and 3 more*") || strings.Count(got, "• ") != maxIssues {
		t.Errorf("capped summary = %q", got)
	}
}
