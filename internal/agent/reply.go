package agent

import (
	"strings"

	"github.com/google/uuid"
)

// replyAction is what a text reply asks the gate to do.
type replyAction int

const (
	replyConfirm replyAction = iota + 1
	replyReject
	replyPending
)

// reply is a parsed confirmation command.
type reply struct {
	action replyAction
	id     string
	ack    string
}

// parseReply recognises "confirm <id> [ack]", "yes <id> [ack]",
// "cancel <id>", "no <id>", "reject <id>" and "pending". The second word
// only counts as an id when it is a UUID or known reports it; otherwise
// the text is an ordinary utterance such as "yes list all filesystems".
func parseReply(text string, known func(id string) bool) (reply, bool) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return reply{}, false
	}

	verb := strings.ToLower(parts[0])
	if len(parts) == 1 {
		if verb == "pending" {
			return reply{action: replyPending}, true
		}
		return reply{}, false
	}

	switch verb {
	case "confirm", "yes", "approve":
		if !looksLikeID(parts[1], known) {
			return reply{}, false
		}
		return reply{action: replyConfirm, id: parts[1], ack: strings.Join(parts[2:], " ")}, true
	case "cancel", "no", "reject", "deny":
		if len(parts) != 2 || !looksLikeID(parts[1], known) {
			return reply{}, false
		}
		return reply{action: replyReject, id: parts[1]}, true
	default:
		return reply{}, false
	}
}

func looksLikeID(s string, known func(string) bool) bool {
	if uuid.Validate(s) == nil {
		return true
	}
	return known != nil && known(s)
}
