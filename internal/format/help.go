package format

import (
	"fmt"
	"strings"

	"github.com/flemzord/scalegate/internal/policy"
)

var exampleQueries = []string{
	"Are there any unhealthy nodes?",
	"List filesets in filesystem gpfs01",
	"Set 10T quota on fileset project-data in gpfs01",
	"Create snapshot daily-backup in gpfs01",
	"Show performance metrics for iops",
}

// Help lists what each handler can do, marking tools that need confirmation.
func Help(handlers []policy.HandlerDescriptor, tools []policy.ToolDescriptor) string {
	tiers := make(map[string]policy.RiskTier, len(tools))
	for _, t := range tools {
		tiers[t.ID] = t.Tier
	}

	var b strings.Builder
	b.WriteString("**IBM Storage Scale assistant**\n\nI can help you with the following:\n")
	for _, h := range handlers {
		fmt.Fprintf(&b, "\n**%s**: %s (%s)\n", title(h.ID), h.Description, strings.Join(h.Personas, ", "))
		for _, id := range h.Tools {
			mark := ""
			switch tiers[id] {
			case policy.TierMedium:
				mark = " (needs confirmation)"
			case policy.TierHigh:
				mark = " (needs confirmation and acknowledgement)"
			}
			fmt.Fprintf(&b, "• %s%s\n", id, mark)
		}
	}
	b.WriteString("\n**Example queries:**\n")
	for _, q := range exampleQueries {
		fmt.Fprintf(&b, "• '%s'\n", q)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ClarificationPrompt asks the user to rephrase. A non-empty question from
// the classifier is used as is.
func ClarificationPrompt(question string) string {
	if q := strings.TrimSpace(question); q != "" {
		return q
	}
	return "I wasn't sure what you'd like me to help with. Here are some things I can do:\n\n" +
		"• **Health**: check cluster health, node status, events\n" +
		"• **Storage**: manage filesystems and filesets\n" +
		"• **Quota**: set quotas and check usage\n" +
		"• **Performance**: analyze capacity and metrics\n" +
		"• **Admin**: manage snapshots, nodes, clusters\n\n" +
		"Could you please rephrase your request or say 'help' for more details?"
}
