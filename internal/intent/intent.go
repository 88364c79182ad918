// Package intent turns a free-form utterance into a tagged intent with
// extracted parameters and a confidence score.
package intent

import (
	"encoding/json"
	"maps"
	"slices"
)

// Source records which strategy produced an intent.
type Source string

// Classification sources.
const (
	SourcePattern   Source = "pattern"
	SourceReasoning Source = "reasoning"
)

// Session is the caller context handed to a classifier.
type Session struct {
	ID      string
	Persona string
}

// Intent is the result of classification. Its parameter map and candidate
// list are private copies, so an Intent can be shared freely once built.
type Intent struct {
	Tag        Tag
	Confidence float64
	Source     Source
	// Prompt is the question to put to the user when Tag is NeedsClarification.
	Prompt string

	params     map[string]any
	candidates []Tag
}

// NewIntent builds an intent. Confidence is clamped to [0,1]; params and
// candidates are copied.
func NewIntent(tag Tag, source Source, confidence float64, params map[string]any, candidates ...Tag) Intent {
	return Intent{
		Tag:        tag,
		Confidence: clamp(confidence),
		Source:     source,
		params:     maps.Clone(params),
		candidates: slices.Clone(candidates),
	}
}

// Unmatched is the intent produced when nothing applies.
func Unmatched(source Source) Intent {
	return Intent{Tag: Unknown, Source: source}
}

// Clarify builds a NeedsClarification intent carrying prompt.
func Clarify(source Source, prompt string) Intent {
	return Intent{Tag: NeedsClarification, Source: source, Prompt: prompt}
}

// Params returns a copy of the extracted parameters.
func (i Intent) Params() map[string]any {
	if i.params == nil {
		return map[string]any{}
	}
	return maps.Clone(i.params)
}

// Param returns a single extracted parameter.
func (i Intent) Param(name string) (any, bool) {
	v, ok := i.params[name]
	return v, ok
}

// Candidates returns other tags that also matched, best first.
func (i Intent) Candidates() []Tag {
	return slices.Clone(i.candidates)
}

// MarshalJSON implements json.Marshaler.
func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Intent     Tag            `json:"intent"`
		Confidence float64        `json:"confidence"`
		Source     Source         `json:"source"`
		Params     map[string]any `json:"params,omitempty"`
		Prompt     string         `json:"prompt,omitempty"`
		Candidates []Tag          `json:"candidates,omitempty"`
	}{i.Tag, i.Confidence, i.Source, i.params, i.Prompt, i.candidates})
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
