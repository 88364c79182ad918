package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Classifier maps an utterance to an Intent. Implementations have no side
// effects beyond the I/O a reasoning backend needs.
type Classifier interface {
	Classify(ctx context.Context, utterance string, sess Session) (Intent, error)
}

// Strategy selects the classifier a deployment runs.
type Strategy string

// Supported strategies.
const (
	StrategyPattern               Strategy = "pattern"
	StrategyReasoning             Strategy = "reasoning"
	StrategyReasoningWithFallback Strategy = "reasoning-with-fallback"
)

// ParseStrategy validates a configured strategy name. Empty means pattern.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyPattern, nil
	case StrategyPattern, StrategyReasoning, StrategyReasoningWithFallback:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// UsesReasoning reports whether the strategy needs a reasoning backend.
func (s Strategy) UsesReasoning() bool {
	return s == StrategyReasoning || s == StrategyReasoningWithFallback
}

// Option configures New.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	rules    []Rule
	reasoner Reasoner
}

// WithLogger sets the logger used by composite strategies.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRules replaces DefaultRules for the pattern strategy.
func WithRules(rules []Rule) Option {
	return func(o *options) { o.rules = rules }
}

// WithReasoner sets the reasoning backend.
func WithReasoner(r Reasoner) Option {
	return func(o *options) { o.reasoner = r }
}

// New builds the classifier for strategy. The choice is made once here;
// nothing switches strategies per request.
func New(strategy Strategy, opts ...Option) (Classifier, error) {
	o := options{rules: DefaultRules()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(nopHandler{})
	}

	switch strategy {
	case StrategyPattern:
		return NewPatternClassifier(o.rules)
	case StrategyReasoning:
		if o.reasoner == nil {
			return nil, ErrNoReasoner
		}
		return NewReasoningClassifier(o.reasoner), nil
	case StrategyReasoningWithFallback:
		if o.reasoner == nil {
			return nil, ErrNoReasoner
		}
		pattern, err := NewPatternClassifier(o.rules)
		if err != nil {
			return nil, err
		}
		return NewFallbackClassifier(NewReasoningClassifier(o.reasoner), pattern, o.logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// FallbackClassifier tries Primary and, when it fails, Secondary.
// A successful Primary result is returned as is, including Unknown.
type FallbackClassifier struct {
	primary   Classifier
	secondary Classifier
	logger    *slog.Logger
}

var _ Classifier = (*FallbackClassifier)(nil)

// NewFallbackClassifier chains primary and secondary in that order.
func NewFallbackClassifier(primary, secondary Classifier, logger *slog.Logger) *FallbackClassifier {
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return &FallbackClassifier{primary: primary, secondary: secondary, logger: logger}
}

// Classify implements Classifier.
func (f *FallbackClassifier) Classify(ctx context.Context, utterance string, sess Session) (Intent, error) {
	in, err := f.primary.Classify(ctx, utterance, sess)
	if err == nil {
		return in, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Intent{}, errors.Join(err, ctxErr)
	}
	f.logger.Warn("intent: primary classifier failed, falling back", "error", err, "session", sess.ID)
	return f.secondary.Classify(ctx, utterance, sess)
}

// nopHandler discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
