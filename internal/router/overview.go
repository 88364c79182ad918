package router

import (
	"fmt"
	"maps"
	"slices"

	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/policy"
)

// Step is one call of an overview binding.
type Step struct {
	Section  string
	Tool     string
	Defaults map[string]any
}

// Overview is a resolved overview: several read-only calls answered as
// one reply. Flag lists the entity statuses reported as issues.
type Overview struct {
	Title string
	Calls []Call
	Flag  []string
}

// Call is one authorised tool call of an Overview.
type Call struct {
	Section string
	Handler string
	Tool    string
	Args    map[string]any
}

// compileOverview checks an overview binding against the policy. Every
// step must name a LOW tool.
func compileOverview(reg *policy.Registry, tag intent.Tag, b Binding) (Binding, error) {
	if b.Tool != "" {
		return Binding{}, fmt.Errorf("%w: %s: overview also names tool %s", ErrInvalidTable, tag, b.Tool)
	}
	out := Binding{Title: b.Title, Flag: slices.Clone(b.Flag)}
	for _, s := range b.Steps {
		desc, err := reg.Lookup(s.Tool)
		if err != nil {
			return Binding{}, fmt.Errorf("%w: %s: %w", ErrInvalidTable, tag, err)
		}
		if desc.Tier != policy.TierLow {
			return Binding{}, fmt.Errorf("%w: %s: overview step %s is %s, want LOW", ErrInvalidTable, tag, s.Tool, desc.Tier)
		}
		for name := range s.Defaults {
			if _, ok := desc.Arg(name); !ok {
				return Binding{}, fmt.Errorf("%w: %s: default for undeclared argument %q of %s", ErrInvalidTable, tag, name, s.Tool)
			}
		}
		out.Steps = append(out.Steps, Step{Section: s.Section, Tool: s.Tool, Defaults: maps.Clone(s.Defaults)})
	}
	return out, nil
}

// routeOverview resolves an overview binding. The persona must be
// admitted by the handler of every step.
func (r *Router) routeOverview(in intent.Intent, persona string, b Binding) (Decision, error) {
	descs := make([]policy.ToolDescriptor, len(b.Steps))
	for i, s := range b.Steps {
		desc, err := r.policy.Lookup(s.Tool)
		if err != nil {
			return Decision{}, err
		}
		if r.disabled[desc.Handler] {
			return Decision{}, &NoHandlerError{Intent: in.Tag, Handler: desc.Handler}
		}
		descs[i] = desc
	}

	if in.Confidence < r.threshold {
		return Decision{}, &AmbiguousIntentError{
			Intent:     in.Tag,
			Confidence: in.Confidence,
			Threshold:  r.threshold,
			Candidates: r.routable(append([]intent.Tag{in.Tag}, in.Candidates()...)),
		}
	}

	checked := make(map[string]bool)
	for _, desc := range descs {
		if checked[desc.Handler] {
			continue
		}
		checked[desc.Handler] = true
		h, err := r.policy.Handler(desc.Handler)
		if err != nil {
			return Decision{}, err
		}
		if !h.Admits(persona) {
			r.logger.Warn("router: persona denied", "persona", persona, "handler", h.ID, "intent", in.Tag)
			return Decision{}, &PersonaError{Persona: persona, Handler: h.ID}
		}
	}

	ov := &Overview{Title: b.Title, Flag: slices.Clone(b.Flag)}
	for i, s := range b.Steps {
		args, err := r.bind(descs[i], Binding{Tool: s.Tool, Defaults: s.Defaults}, in)
		if err != nil {
			return Decision{}, err
		}
		ov.Calls = append(ov.Calls, Call{Section: s.Section, Handler: descs[i].Handler, Tool: s.Tool, Args: args})
	}
	return Decision{
		Intent:   in.Tag,
		Handler:  descs[0].Handler,
		Tier:     policy.TierLow,
		Overview: ov,
	}, nil
}

// handlers returns the handler ids a binding calls into.
func (r *Router) handlers(b Binding) ([]string, error) {
	if len(b.Steps) == 0 {
		desc, err := r.policy.Lookup(b.Tool)
		if err != nil {
			return nil, err
		}
		return []string{desc.Handler}, nil
	}
	var out []string
	for _, s := range b.Steps {
		desc, err := r.policy.Lookup(s.Tool)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, desc.Handler) {
			out = append(out, desc.Handler)
		}
	}
	return out, nil
}
