package intent

import (
	"context"
	"fmt"
	"strings"
)

// ReasoningRequest is what a reasoning backend is asked to classify.
type ReasoningRequest struct {
	Utterance  string
	Session    Session
	Vocabulary []TagInfo
}

// ReasoningResult is the backend's answer. A non-empty Clarification or a
// NeedsClarification tag asks the user a question instead of acting.
type ReasoningResult struct {
	Tag           Tag
	Params        map[string]any
	Confidence    float64
	Clarification string
}

// Reasoner is an external classification capability, typically a language
// model behind an HTTP API.
type Reasoner interface {
	Reason(ctx context.Context, req ReasoningRequest) (ReasoningResult, error)
}

// ReasoningClassifier adapts a Reasoner to the Classifier interface.
type ReasoningClassifier struct {
	reasoner Reasoner
}

var _ Classifier = (*ReasoningClassifier)(nil)

// NewReasoningClassifier wraps r.
func NewReasoningClassifier(r Reasoner) *ReasoningClassifier {
	return &ReasoningClassifier{reasoner: r}
}

// Classify implements Classifier. Tags outside the vocabulary become Unknown.
func (c *ReasoningClassifier) Classify(ctx context.Context, utterance string, sess Session) (Intent, error) {
	if strings.TrimSpace(utterance) == "" {
		return Unmatched(SourceReasoning), nil
	}
	res, err := c.reasoner.Reason(ctx, ReasoningRequest{
		Utterance:  utterance,
		Session:    sess,
		Vocabulary: Vocabulary(),
	})
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %w", ErrReasoning, err)
	}

	if res.Tag == NeedsClarification || strings.TrimSpace(res.Clarification) != "" {
		return Clarify(SourceReasoning, strings.TrimSpace(res.Clarification)), nil
	}
	if res.Tag == "" || res.Tag == Unknown || !Known(res.Tag) {
		return Unmatched(SourceReasoning), nil
	}

	params := make(map[string]any, len(res.Params))
	for k, v := range res.Params {
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v = s
		}
		if v == nil {
			continue
		}
		params[k] = v
	}
	return NewIntent(res.Tag, SourceReasoning, res.Confidence, params), nil
}
