package intent_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/intent/intenttest"
)

func regexpMust(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want intent.Strategy
		err  bool
	}{
		{"", intent.StrategyPattern, false},
		{"pattern", intent.StrategyPattern, false},
		{"Reasoning", intent.StrategyReasoning, false},
		{"reasoning-with-fallback", intent.StrategyReasoningWithFallback, false},
		{"magic", "", true},
	}
	for _, tt := range tests {
		got, err := intent.ParseStrategy(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseStrategy(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_ReasoningRequiresReasoner(t *testing.T) {
	t.Parallel()

	for _, s := range []intent.Strategy{intent.StrategyReasoning, intent.StrategyReasoningWithFallback} {
		if _, err := intent.New(s); !errors.Is(err, intent.ErrNoReasoner) {
			t.Errorf("%s: err = %v, want ErrNoReasoner", s, err)
		}
	}
	if _, err := intent.New("bogus"); !errors.Is(err, intent.ErrUnknownStrategy) {
		t.Errorf("err = %v, want ErrUnknownStrategy", err)
	}
}

func TestReasoning_PassesVocabularyAndResult(t *testing.T) {
	t.Parallel()

	r := &intenttest.Reasoner{Result: intent.ReasoningResult{
		Tag:        intent.SetQuota,
		Confidence: 0.8,
		Params:     map[string]any{"filesystem": " gpfs01 ", "fileset": "", "hard_limit": "5T"},
	}}
	c, err := intent.New(intent.StrategyReasoning, intent.WithReasoner(r))
	if err != nil {
		t.Fatal(err)
	}

	in, err := c.Classify(context.Background(), "give proj1 five terabytes", intent.Session{ID: "s"})
	if err != nil {
		t.Fatal(err)
	}
	if in.Tag != intent.SetQuota || in.Source != intent.SourceReasoning {
		t.Fatalf("got %s/%s", in.Tag, in.Source)
	}
	p := in.Params()
	if p["filesystem"] != "gpfs01" {
		t.Errorf("filesystem = %q, want trimmed", p["filesystem"])
	}
	if _, ok := p["fileset"]; ok {
		t.Error("empty params must be dropped")
	}
	calls := r.Calls()
	if len(calls) != 1 || len(calls[0].Vocabulary) == 0 {
		t.Fatalf("reasoner calls = %+v", calls)
	}
}

func TestReasoning_Clarification(t *testing.T) {
	t.Parallel()

	r := &intenttest.Reasoner{Result: intent.ReasoningResult{
		Tag:           intent.NeedsClarification,
		Clarification: "Which filesystem?",
	}}
	c := intent.NewReasoningClassifier(r)
	in, err := c.Classify(context.Background(), "make a snapshot", intent.Session{})
	if err != nil {
		t.Fatal(err)
	}
	if in.Tag != intent.NeedsClarification || in.Prompt != "Which filesystem?" {
		t.Errorf("got %s %q", in.Tag, in.Prompt)
	}
}

func TestReasoning_UnknownTag(t *testing.T) {
	t.Parallel()

	r := &intenttest.Reasoner{Result: intent.ReasoningResult{Tag: "format_everything", Confidence: 1}}
	in, err := intent.NewReasoningClassifier(r).Classify(context.Background(), "x", intent.Session{})
	if err != nil {
		t.Fatal(err)
	}
	if in.Tag != intent.Unknown || in.Confidence != 0 {
		t.Errorf("got %s/%v, want UNKNOWN/0", in.Tag, in.Confidence)
	}
}

func TestReasoning_ErrorWithoutFallback(t *testing.T) {
	t.Parallel()

	r := &intenttest.Reasoner{Err: errors.New("boom")}
	c, err := intent.New(intent.StrategyReasoning, intent.WithReasoner(r))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Classify(context.Background(), "list all filesystems", intent.Session{}); !errors.Is(err, intent.ErrReasoning) {
		t.Errorf("err = %v, want ErrReasoning", err)
	}
}

func TestFallback_UsesPatternOnReasonerFailure(t *testing.T) {
	t.Parallel()

	r := &intenttest.Reasoner{Err: errors.New("backend down")}
	c, err := intent.New(intent.StrategyReasoningWithFallback, intent.WithReasoner(r))
	if err != nil {
		t.Fatal(err)
	}
	in, err := c.Classify(context.Background(), "List all filesystems", intent.Session{})
	if err != nil {
		t.Fatal(err)
	}
	if in.Tag != intent.ListFilesystems || in.Source != intent.SourcePattern {
		t.Errorf("got %s/%s, want list_filesystems from pattern", in.Tag, in.Source)
	}
}

func TestFallback_KeepsSuccessfulPrimary(t *testing.T) {
	t.Parallel()

	r := &intenttest.Reasoner{Result: intent.ReasoningResult{Tag: intent.Unknown}}
	c, err := intent.New(intent.StrategyReasoningWithFallback, intent.WithReasoner(r))
	if err != nil {
		t.Fatal(err)
	}
	in, err := c.Classify(context.Background(), "List all filesystems", intent.Session{})
	if err != nil {
		t.Fatal(err)
	}
	if in.Tag != intent.Unknown || in.Source != intent.SourceReasoning {
		t.Errorf("got %s/%s, want UNKNOWN from reasoning", in.Tag, in.Source)
	}
}

func TestFallback_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &intenttest.Reasoner{Err: context.Canceled}
	c := intent.NewFallbackClassifier(intent.NewReasoningClassifier(r), intent.NewDefaultPatternClassifier(), nil)
	if _, err := c.Classify(ctx, "list all filesystems", intent.Session{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
