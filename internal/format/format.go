// Package format renders pipeline results as user-facing markdown. Every
// function is pure: the same input always yields the same text.
package format

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/flemzord/scalegate/internal/dispatch"
)

// Display limits.
const (
	MaxItems     = 50
	MaxCellWidth = 100
	// nestedListPreview is how many entries of a nested list are shown inline.
	nestedListPreview = 5
)

// Result renders a successful tool call.
func Result(r dispatch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", title(r.Tool))
	if len(r.Content) == 0 {
		b.WriteString("*No output*")
		return b.String()
	}
	for i, part := range r.Content {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Value(decode(part)))
	}
	return b.String()
}

// decode returns the JSON value in s, or s itself when it is not JSON.
func decode(s string) any {
	t := strings.TrimSpace(s)
	if t == "" || (t[0] != '{' && t[0] != '[') {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(t), &v); err != nil {
		return s
	}
	return unwrap(v)
}

// unwrap strips the single-key envelopes backends commonly add.
func unwrap(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	for _, k := range []string{"data", "result"} {
		if inner, ok := m[k]; ok {
			return inner
		}
	}
	return v
}

// Value renders a decoded JSON value.
func Value(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return formatMap(t, 0)
	case []any:
		return formatList(t)
	case string:
		return t
	default:
		return scalar(v)
	}
}

func formatMap(m map[string]any, indent int) string {
	if len(m) == 0 {
		return "*Empty*"
	}
	prefix := strings.Repeat("  ", indent)
	var lines []string
	for _, k := range slices.Sorted(maps.Keys(m)) {
		switch v := m[k].(type) {
		case map[string]any:
			lines = append(lines, fmt.Sprintf("%s**%s:**", prefix, k), formatMap(v, indent+1))
		case []any:
			lines = append(lines, fmt.Sprintf("%s**%s:** (%d items)", prefix, k, len(v)))
			if len(v) <= nestedListPreview {
				for _, item := range v {
					lines = append(lines, fmt.Sprintf("%s  • %s", prefix, scalar(item)))
				}
			}
		default:
			lines = append(lines, fmt.Sprintf("%s**%s:** %s", prefix, k, scalar(v)))
		}
	}
	return strings.Join(lines, "\n")
}

func formatList(items []any) string {
	if len(items) == 0 {
		return "*Empty list*"
	}
	lines := []string{fmt.Sprintf("*%d item(s)*", len(items)), ""}
	for i, item := range items[:min(len(items), MaxItems)] {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, listItem(item)))
	}
	if len(items) > MaxItems {
		lines = append(lines, fmt.Sprintf("*... and %d more*", len(items)-MaxItems))
	}
	return strings.Join(lines, "\n")
}

var (
	nameKeys   = []string{"name", "filesetName", "filesystemName", "nodeName", "entityName"}
	statusKeys = []string{"status", "state", "health"}
)

// listItem prefers a name and status; otherwise it shows the first four
// fields in key order.
func listItem(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return scalar(item)
	}
	if name := firstString(m, nameKeys); name != "" {
		if status := firstString(m, statusKeys); status != "" {
			return fmt.Sprintf("`%s` (%s)", truncate(name), truncate(status))
		}
		return fmt.Sprintf("`%s`", truncate(name))
	}
	keys := slices.Sorted(maps.Keys(m))
	parts := make([]string, 0, 4)
	for _, k := range keys[:min(len(keys), 4)] {
		parts = append(parts, k+"="+scalar(m[k]))
	}
	return strings.Join(parts, ", ")
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "*none*"
	case bool:
		if t {
			return "✓"
		}
		return "✗"
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case string:
		return truncate(t)
	case []any:
		return fmt.Sprintf("[%d items]", len(t))
	case map[string]any:
		return fmt.Sprintf("{%d fields}", len(t))
	default:
		return truncate(fmt.Sprint(t))
	}
}

// truncate shortens s to MaxCellWidth runes, ending with "...".
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxCellWidth {
		return s
	}
	return string(r[:MaxCellWidth-3]) + "..."
}

// title turns a tool id into a heading: "list_filesystems" → "List filesystems".
func title(tool string) string {
	s := strings.ReplaceAll(tool, "_", " ")
	if s == "" {
		return "Result"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
