// Package policy holds the static tool policy: which handler owns which
// tool, how risky each tool is, and what arguments it accepts.
package policy

import (
	"fmt"
	"strings"
)

// RiskTier classifies how destructive a tool can be.
type RiskTier int

// Risk tiers, ordered from harmless to destructive.
const (
	TierLow RiskTier = iota + 1
	TierMedium
	TierHigh
)

// String returns the upper-case tier name.
func (t RiskTier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared tiers.
func (t RiskTier) Valid() bool {
	return t >= TierLow && t <= TierHigh
}

// RequiresConfirmation is true for MEDIUM and HIGH tiers.
func (t RiskTier) RequiresConfirmation() bool {
	return t == TierMedium || t == TierHigh
}

// RequiresAcknowledgement is true for tiers whose confirmation must repeat
// the action name instead of a plain yes.
func (t RiskTier) RequiresAcknowledgement() bool {
	return t == TierHigh
}

// ParseRiskTier parses "low", "medium" or "high" (any case).
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return TierLow, nil
	case "MEDIUM":
		return TierMedium, nil
	case "HIGH":
		return TierHigh, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RiskTier) UnmarshalText(b []byte) error {
	v, err := ParseRiskTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ArgType is the JSON type of a tool argument.
type ArgType string

// Argument types accepted by the backend.
const (
	ArgString  ArgType = "string"
	ArgInteger ArgType = "integer"
	ArgNumber  ArgType = "number"
	ArgBoolean ArgType = "boolean"
)

// ArgSpec describes one argument of a tool.
type ArgSpec struct {
	Name        string
	Type        ArgType
	Required    bool
	Pattern     string
	Enum        []string
	Description string
}

// ToolDescriptor is the static policy entry for one backend tool.
type ToolDescriptor struct {
	ID          string
	Tier        RiskTier
	Handler     string
	Description string
	Args        []ArgSpec
}

// RequiresConfirmation is derived from the tier and cannot be set on its own.
func (d ToolDescriptor) RequiresConfirmation() bool {
	return d.Tier.RequiresConfirmation()
}

// AcknowledgementPhrase returns the literal a user must repeat to confirm
// the tool, or "" when a plain confirmation is enough.
func (d ToolDescriptor) AcknowledgementPhrase() string {
	if !d.Tier.RequiresAcknowledgement() {
		return ""
	}
	return d.ID
}

// RequiredArgs returns the names of required arguments in declaration order.
func (d ToolDescriptor) RequiredArgs() []string {
	var out []string
	for _, a := range d.Args {
		if a.Required {
			out = append(out, a.Name)
		}
	}
	return out
}

// Arg returns the definition of the named argument.
func (d ToolDescriptor) Arg(name string) (ArgSpec, bool) {
	for _, a := range d.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ArgSpec{}, false
}

// Schema renders the argument list as a JSON Schema object.
func (d ToolDescriptor) Schema() map[string]any {
	props := make(map[string]any, len(d.Args))
	required := make([]any, 0, len(d.Args))
	for _, a := range d.Args {
		p := map[string]any{"type": string(a.Type)}
		if a.Pattern != "" {
			p["pattern"] = a.Pattern
		}
		if len(a.Enum) > 0 {
			enum := make([]any, len(a.Enum))
			for i, e := range a.Enum {
				enum[i] = e
			}
			p["enum"] = enum
		}
		if a.Description != "" {
			p["description"] = a.Description
		}
		props[a.Name] = p
		if a.Required {
			required = append(required, a.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// HandlerDescriptor is a domain-scoped group of tools and the personas
// allowed to use them.
type HandlerDescriptor struct {
	ID          string
	Description string
	// Personas lists who may invoke this handler. "*" admits anyone.
	Personas []string
	// Tools is the ordered whitelist of tool identifiers.
	Tools []string
}

// Admits reports whether persona may use the handler.
func (h HandlerDescriptor) Admits(persona string) bool {
	for _, p := range h.Personas {
		if p == "*" || strings.EqualFold(p, persona) {
			return true
		}
	}
	return false
}
