package policy

import (
	"errors"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	t.Parallel()

	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if got := len(r.Handlers()); got != 5 {
		t.Fatalf("handlers = %d, want 5", got)
	}
	for _, d := range r.Tools() {
		if d.Handler == "" {
			t.Errorf("tool %s has no owner", d.ID)
		}
		if !r.Allows(d.Handler, d.ID) {
			t.Errorf("tool %s not on its owner's whitelist", d.ID)
		}
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tool    string
		tier    RiskTier
		confirm bool
		owner   string
	}{
		{"list_filesystems", TierLow, false, HandlerStorage},
		{"set_quota", TierMedium, true, HandlerQuota},
		{"create_snapshot", TierHigh, true, HandlerAdmin},
		{"get_nodes_status", TierLow, false, HandlerHealth},
	}
	for _, tt := range tests {
		d, err := r.Lookup(tt.tool)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", tt.tool, err)
		}
		if d.Tier != tt.tier {
			t.Errorf("%s tier = %s, want %s", tt.tool, d.Tier, tt.tier)
		}
		if d.RequiresConfirmation() != tt.confirm {
			t.Errorf("%s requires confirmation = %v, want %v", tt.tool, d.RequiresConfirmation(), tt.confirm)
		}
		if d.Handler != tt.owner {
			t.Errorf("%s owner = %s, want %s", tt.tool, d.Handler, tt.owner)
		}
	}

	if _, err := r.Lookup("format_disk"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("unknown tool: err = %v, want ErrToolNotFound", err)
	}
}

func TestRequiresConfirmation_FollowsTier(t *testing.T) {
	t.Parallel()

	for _, tier := range []RiskTier{TierLow, TierMedium, TierHigh} {
		want := tier != TierLow
		if got := (ToolDescriptor{Tier: tier}).RequiresConfirmation(); got != want {
			t.Errorf("%s: got %v, want %v", tier, got, want)
		}
	}
	if (ToolDescriptor{ID: "x", Tier: TierHigh}).AcknowledgementPhrase() != "x" {
		t.Error("HIGH tools must carry an acknowledgement phrase")
	}
	if (ToolDescriptor{ID: "x", Tier: TierMedium}).AcknowledgementPhrase() != "" {
		t.Error("MEDIUM tools must not carry an acknowledgement phrase")
	}
}

func TestWhitelistFor(t *testing.T) {
	t.Parallel()

	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	wl := r.WhitelistFor(HandlerQuota)
	if len(wl) != 3 {
		t.Fatalf("quota whitelist size = %d, want 3", len(wl))
	}
	if _, ok := wl["create_snapshot"]; ok {
		t.Error("quota whitelist must not contain create_snapshot")
	}
	if got := r.WhitelistFor("nope"); len(got) != 0 {
		t.Errorf("unknown handler whitelist = %v, want empty", got)
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handlers []HandlerDescriptor
		tools    []ToolDescriptor
		want     error
	}{
		{
			name:     "unregistered tool",
			handlers: []HandlerDescriptor{{ID: "h", Tools: []string{"a", "ghost"}}},
			tools:    []ToolDescriptor{{ID: "a", Tier: TierLow}},
			want:     ErrUnregisteredTool,
		},
		{
			name: "shared tool",
			handlers: []HandlerDescriptor{
				{ID: "h1", Tools: []string{"a"}},
				{ID: "h2", Tools: []string{"a"}},
			},
			tools: []ToolDescriptor{{ID: "a", Tier: TierLow}},
			want:  ErrSharedTool,
		},
		{
			name:     "orphan tool",
			handlers: []HandlerDescriptor{{ID: "h", Tools: []string{"a"}}},
			tools:    []ToolDescriptor{{ID: "a", Tier: TierLow}, {ID: "b", Tier: TierLow}},
			want:     ErrOrphanTool,
		},
		{
			name:     "invalid tier",
			handlers: []HandlerDescriptor{{ID: "h", Tools: []string{"a"}}},
			tools:    []ToolDescriptor{{ID: "a"}},
			want:     ErrInvalidTier,
		},
		{
			name:     "duplicate tool",
			handlers: []HandlerDescriptor{{ID: "h", Tools: []string{"a"}}},
			tools:    []ToolDescriptor{{ID: "a", Tier: TierLow}, {ID: "a", Tier: TierHigh}},
			want:     ErrDuplicateTool,
		},
		{
			name:     "owner mismatch",
			handlers: []HandlerDescriptor{{ID: "h", Tools: []string{"a"}}},
			tools:    []ToolDescriptor{{ID: "a", Tier: TierLow, Handler: "other"}},
			want:     ErrOwnerMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := NewRegistry(tt.handlers, tt.tools)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if r != nil {
				t.Error("registry must be nil on validation failure")
			}
		})
	}
}

func TestHandlerAdmits(t *testing.T) {
	t.Parallel()

	h := HandlerDescriptor{ID: "h", Personas: []string{"sre", "Admin"}}
	if !h.Admits("admin") {
		t.Error("persona match must be case-insensitive")
	}
	if h.Admits("intern") {
		t.Error("intern must not be admitted")
	}
	if !(HandlerDescriptor{Personas: []string{"*"}}).Admits("anyone") {
		t.Error("wildcard must admit anyone")
	}
}

func TestParseRiskTier(t *testing.T) {
	t.Parallel()

	if got, err := ParseRiskTier(" high "); err != nil || got != TierHigh {
		t.Errorf("ParseRiskTier(high) = %v, %v", got, err)
	}
	if _, err := ParseRiskTier("extreme"); !errors.Is(err, ErrInvalidTier) {
		t.Errorf("err = %v, want ErrInvalidTier", err)
	}
}

func TestSchema_RequiredAndClosed(t *testing.T) {
	t.Parallel()

	r, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	d, _ := r.Lookup("create_snapshot")
	s := d.Schema()
	req, _ := s["required"].([]any)
	if len(req) != 2 || req[0] != "name" || req[1] != "filesystem" {
		t.Errorf("required = %v, want [name filesystem]", req)
	}
	if s["additionalProperties"] != false {
		t.Error("schema must reject unknown properties")
	}
}

func TestRiskTier_TextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tier := range []RiskTier{TierLow, TierMedium, TierHigh} {
		b, err := tier.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got RiskTier
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if got != tier {
			t.Errorf("round trip %s = %s", tier, got)
		}
	}
	var bad RiskTier
	if err := bad.UnmarshalText([]byte("EXTREME")); !errors.Is(err, ErrInvalidTier) {
		t.Errorf("UnmarshalText(EXTREME) = %v, want ErrInvalidTier", err)
	}
}
