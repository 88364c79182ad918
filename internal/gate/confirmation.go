package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/flemzord/scalegate/internal/policy"
)

// Status is the lifecycle state of a confirmation.
type Status string

// Confirmation states. Every state but StatusPending is terminal.
const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool { return s != StatusPending }

// Confirmation is a point-in-time copy of a gated request.
type Confirmation struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	Tool       string          `json:"tool"`
	Tier       policy.RiskTier `json:"tier"`
	Args       map[string]any  `json:"args"`
	Signature  string          `json:"signature"`
	AckPhrase  string          `json:"ack_phrase,omitempty"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	ResolvedAt time.Time       `json:"resolved_at,omitzero"`
}

// RequiresAcknowledgement reports whether confirming needs AckPhrase.
func (c Confirmation) RequiresAcknowledgement() bool { return c.AckPhrase != "" }

func (c Confirmation) clone() Confirmation {
	c.Args = maps.Clone(c.Args)
	return c
}

// Decision tells the caller what to do with a gated request.
type Decision int

// Gate decisions.
const (
	Proceed Decision = iota + 1
	AwaitingConfirmation
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Outcome is the result of Request and Confirm.
type Outcome struct {
	Decision Decision
	Tool     string
	// Args are the arguments to dispatch. Set only when Decision is Proceed.
	Args map[string]any
	// Confirmation is set when a confirmation entry is involved: the new or
	// reused pending entry, or the entry that was just confirmed.
	Confirmation *Confirmation
}

// Signature is a stable digest of args. Maps are encoded with sorted keys,
// so equal argument sets always share a signature.
func Signature(args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("gate: encode arguments: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16]), nil
}

// acknowledges reports whether ack repeats phrase. Case, surrounding space,
// and the separator between words are ignored, so "Create snapshot" and
// "create-snapshot" both acknowledge create_snapshot.
func acknowledges(ack, phrase string) bool {
	norm := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
			return r == ' ' || r == '_' || r == '-' || r == '\t'
		}), "_")
	}
	return phrase != "" && norm(ack) == norm(phrase)
}
