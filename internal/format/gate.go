package format

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/flemzord/scalegate/internal/gate"
)

// Pending renders a confirmation awaiting an answer.
func Pending(c gate.Confirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**⚠️ Confirmation required** (%s risk)\n\n", c.Tier)
	fmt.Fprintf(&b, "**Action:** `%s`\n", c.Tool)
	if len(c.Args) > 0 {
		fmt.Fprintf(&b, "**Arguments:**\n%s\n", formatMap(c.Args, 1))
	}
	fmt.Fprintf(&b, "**Confirmation id:** `%s`\n", c.ID)
	fmt.Fprintf(&b, "**Expires:** %s (%s)\n\n",
		c.ExpiresAt.UTC().Format("2006-01-02 15:04:05 MST"),
		strings.TrimSpace(humanize.RelTime(c.CreatedAt, c.ExpiresAt, "after request", "")))
	if c.RequiresAcknowledgement() {
		fmt.Fprintf(&b, "This action is destructive. To proceed reply `confirm %s %s`.", c.ID, c.AckPhrase)
	} else {
		fmt.Fprintf(&b, "To proceed reply `confirm %s`.", c.ID)
	}
	fmt.Fprintf(&b, " To cancel reply `cancel %s`.", c.ID)
	return b.String()
}

// Rejected renders the result of a reject call.
func Rejected(id string, status gate.Status) string {
	switch status {
	case gate.StatusExpired:
		return fmt.Sprintf("Confirmation `%s` had already expired. Nothing was run.", id)
	default:
		return fmt.Sprintf("Cancelled `%s`. Nothing was run.", id)
	}
}

// PendingList renders a session's open confirmations.
func PendingList(cs []gate.Confirmation) string {
	if len(cs) == 0 {
		return "No pending confirmations."
	}
	lines := []string{fmt.Sprintf("*%d pending confirmation(s)*", len(cs)), ""}
	for i, c := range cs {
		lines = append(lines, fmt.Sprintf("%d. `%s` %s (%s, expires %s)",
			i+1, c.ID, c.Tool, c.Tier, c.ExpiresAt.UTC().Format("15:04:05 MST")))
	}
	return strings.Join(lines, "\n")
}
