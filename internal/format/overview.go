package format

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/flemzord/scalegate/internal/dispatch"
)

// maxIssues caps the issue summary of an overview.
const maxIssues = 20

var reasonKeys = []string{"reason", "message", "description", "event"}

// Section is one call of an overview. Err is set when the call failed.
type Section struct {
	Title  string
	Result dispatch.Result
	Err    error
}

// Issue is an entity whose status is one of the flagged ones.
type Issue struct {
	Entity string
	Status string
	Reason string
}

// Overview renders the sections of a multi-call answer followed by a
// summary of the entities whose status is in flag. A failed section is
// shown as unavailable and does not hide the others.
func Overview(heading string, sections []Section, flag []string) string {
	var (
		b      strings.Builder
		issues []Issue
	)
	fmt.Fprintf(&b, "**%s**\n", heading)
	for _, s := range sections {
		fmt.Fprintf(&b, "\n**%s:**\n", s.Title)
		if s.Err != nil {
			fmt.Fprintf(&b, "*Unable to retrieve:* %s\n", truncate(s.Err.Error()))
			continue
		}
		if len(s.Result.Content) == 0 {
			b.WriteString("*No output*\n")
			continue
		}
		for _, part := range s.Result.Content {
			v := decode(part)
			b.WriteString(Value(v))
			b.WriteString("\n")
			issues = append(issues, Issues(v, flag)...)
		}
	}
	b.WriteString("\n")
	b.WriteString(IssueSummary(issues))
	return b.String()
}

// IssueSummary lists issues, one per line, or states that none were found.
func IssueSummary(issues []Issue) string {
	if len(issues) == 0 {
		return "**Summary:** no issues detected."
	}
	lines := []string{fmt.Sprintf("**Detected issues (%d):**", len(issues))}
	for _, is := range issues[:min(len(issues), maxIssues)] {
		line := fmt.Sprintf("• `%s` %s", truncate(is.Entity), is.Status)
		if is.Reason != "" {
			line += ": " + truncate(is.Reason)
		}
		lines = append(lines, line)
	}
	if len(issues) > maxIssues {
		lines = append(lines, fmt.Sprintf("*... and %d more*", len(issues)-maxIssues))
	}
	return strings.Join(lines, "\n")
}

// Issues walks a decoded JSON value and returns every object whose status
// field, compared case-insensitively, is in flag. Objects are visited in
// document order with map keys sorted.
func Issues(v any, flag []string) []Issue {
	if len(flag) == 0 {
		return nil
	}
	var out []Issue
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			if status := firstString(t, statusKeys); status != "" && slices.ContainsFunc(flag, func(f string) bool {
				return strings.EqualFold(f, status)
			}) {
				entity := firstString(t, nameKeys)
				if entity == "" {
					entity = "unknown"
				}
				out = append(out, Issue{
					Entity: entity,
					Status: strings.ToUpper(status),
					Reason: firstString(t, reasonKeys),
				})
			}
			for _, k := range slices.Sorted(maps.Keys(t)) {
				switch t[k].(type) {
				case []any, map[string]any:
					walk(t[k])
				}
			}
		}
	}
	walk(v)
	return out
}
