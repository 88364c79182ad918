package intent

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// DefaultConfidence is assigned to a rule match when the rule sets none.
const DefaultConfidence = 0.9

const maxCandidates = 3

// Extractor pulls one parameter out of an utterance. The first capture
// group of Pattern is the value unless Value is set, in which case a match
// yields Value verbatim.
type Extractor struct {
	Param   string
	Pattern *regexp.Regexp
	Value   string
}

// Rule maps a pattern to a tag. Named capture groups in Pattern become
// parameters; Extract fills the parameters the pattern does not capture.
type Rule struct {
	Tag        Tag
	Pattern    *regexp.Regexp
	Confidence float64
	Priority   int
	Extract    []Extractor
}

// PatternClassifier evaluates an ordered rule table. Rules are sorted by
// priority (ascending) with declaration order as tiebreaker, and the first
// matching rule wins.
type PatternClassifier struct {
	rules []Rule
}

var _ Classifier = (*PatternClassifier)(nil)

// NewPatternClassifier validates and orders rules.
func NewPatternClassifier(rules []Rule) (*PatternClassifier, error) {
	ordered := slices.Clone(rules)
	for i, r := range ordered {
		if r.Tag == "" || r.Pattern == nil {
			return nil, fmt.Errorf("%w: rule %d", ErrInvalidRule, i)
		}
		if !Known(r.Tag) {
			return nil, fmt.Errorf("%w: rule %d has unknown tag %q", ErrInvalidRule, i, r.Tag)
		}
		for _, e := range r.Extract {
			if e.Param == "" || e.Pattern == nil {
				return nil, fmt.Errorf("%w: rule %d has an incomplete extractor", ErrInvalidRule, i)
			}
		}
	}
	// SortStableFunc keeps declaration order for equal priorities.
	slices.SortStableFunc(ordered, func(a, b Rule) int {
		return a.Priority - b.Priority
	})
	return &PatternClassifier{rules: ordered}, nil
}

// Classify implements Classifier. It never returns an error.
func (p *PatternClassifier) Classify(_ context.Context, utterance string, _ Session) (Intent, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return Unmatched(SourcePattern), nil
	}

	var (
		winner     *Rule
		match      []string
		candidates []Tag
	)
	for i := range p.rules {
		r := &p.rules[i]
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if winner == nil {
			winner, match = r, m
			continue
		}
		if r.Tag != winner.Tag && !slices.Contains(candidates, r.Tag) && len(candidates) < maxCandidates {
			candidates = append(candidates, r.Tag)
		}
	}
	if winner == nil {
		return Unmatched(SourcePattern), nil
	}

	params := make(map[string]any)
	for i, name := range winner.Pattern.SubexpNames() {
		if name == "" || i >= len(match) {
			continue
		}
		if v := cleanValue(match[i]); v != "" {
			params[name] = v
		}
	}
	for _, e := range winner.Extract {
		if _, done := params[e.Param]; done {
			continue
		}
		if v := e.extract(text); v != "" {
			params[e.Param] = v
		}
	}

	conf := winner.Confidence
	if conf == 0 {
		conf = DefaultConfidence
	}
	return NewIntent(winner.Tag, SourcePattern, conf, params, candidates...), nil
}

// Rules returns the ordered rule table.
func (p *PatternClassifier) Rules() []Rule {
	return slices.Clone(p.rules)
}

func (e Extractor) extract(text string) string {
	for _, m := range e.Pattern.FindAllStringSubmatch(text, -1) {
		if e.Value != "" {
			return e.Value
		}
		if len(m) < 2 {
			continue
		}
		if v := cleanValue(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// stopwords are tokens that a loose extractor may capture but that are
// never resource names.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "all": {}, "my": {}, "this": {}, "that": {}, "every": {},
	"in": {}, "on": {}, "of": {}, "for": {}, "from": {}, "to": {}, "at": {}, "with": {},
	"named": {}, "called": {}, "new": {},
	"cluster": {}, "clusters": {}, "node": {}, "nodes": {},
	"filesystem": {}, "filesystems": {}, "fs": {}, "fileset": {}, "filesets": {},
	"snapshot": {}, "snapshots": {}, "quota": {}, "quotas": {}, "pool": {}, "pools": {},
	"health": {}, "status": {}, "state": {}, "usage": {}, "details": {}, "info": {},
	"events": {}, "config": {}, "configuration": {}, "performance": {},
}

func cleanValue(v string) string {
	v = strings.Trim(strings.TrimSpace(v), `"'.,;:?!`)
	if _, stop := stopwords[strings.ToLower(v)]; stop {
		return ""
	}
	return v
}
