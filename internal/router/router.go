package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/flemzord/scalegate/internal/intent"
	"github.com/flemzord/scalegate/internal/policy"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultAmbiguityThreshold is used when Config leaves the threshold at zero.
const DefaultAmbiguityThreshold = 0.5

// Config holds the configuration for a Router.
type Config struct {
	Policy *policy.Registry

	// Table maps intents to tools. Nil means DefaultTable.
	Table map[intent.Tag]Binding

	// AmbiguityThreshold is the minimum confidence to act on an intent.
	AmbiguityThreshold float64

	// Disabled lists handler ids whose intents are refused.
	Disabled []string

	Logger *slog.Logger
}

// Decision is a resolved, authorised tool call. For overview intents
// Overview holds the calls and Tool and Args are empty.
type Decision struct {
	Intent   intent.Tag
	Handler  string
	Tool     string
	Tier     policy.RiskTier
	Args     map[string]any
	Overview *Overview
}

// Router resolves intents. It holds only immutable state after New and is
// safe for concurrent use.
type Router struct {
	policy    *policy.Registry
	table     map[intent.Tag]Binding
	threshold float64
	disabled  map[string]bool
	schemas   map[string]*jsonschema.Schema
	logger    *slog.Logger
}

// New validates the intent table against the policy and compiles every
// tool's argument schema. A table entry naming an unknown tool is fatal.
func New(cfg Config) (*Router, error) {
	if cfg.Policy == nil {
		return nil, errors.New("router: policy registry is required")
	}
	table := cfg.Table
	if table == nil {
		table = DefaultTable()
	}
	threshold := cfg.AmbiguityThreshold
	if threshold == 0 {
		threshold = DefaultAmbiguityThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("router: ambiguity threshold %v outside [0,1]", threshold)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(nopHandler{})
	}

	r := &Router{
		policy:    cfg.Policy,
		table:     make(map[intent.Tag]Binding, len(table)),
		threshold: threshold,
		disabled:  make(map[string]bool, len(cfg.Disabled)),
		schemas:   make(map[string]*jsonschema.Schema),
		logger:    logger,
	}

	var errs []error
	for _, h := range cfg.Disabled {
		if _, err := cfg.Policy.Handler(h); err != nil {
			errs = append(errs, err)
			continue
		}
		r.disabled[h] = true
	}
	for tag, b := range table {
		if len(b.Steps) > 0 {
			ov, err := compileOverview(cfg.Policy, tag, b)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			r.table[tag] = ov
			continue
		}
		desc, err := cfg.Policy.Lookup(b.Tool)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidTable, tag, err))
			continue
		}
		for name := range b.Defaults {
			if _, ok := desc.Arg(name); !ok {
				errs = append(errs, fmt.Errorf("%w: %s: default for undeclared argument %q", ErrInvalidTable, tag, name))
			}
		}
		r.table[tag] = Binding{Tool: b.Tool, Defaults: maps.Clone(b.Defaults)}
	}
	for _, desc := range cfg.Policy.Tools() {
		sch, err := compileSchema(desc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.schemas[desc.ID] = sch
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Threshold returns the effective ambiguity threshold.
func (r *Router) Threshold() float64 { return r.threshold }

// Enabled reports whether handlerID serves requests.
func (r *Router) Enabled(handlerID string) bool { return !r.disabled[handlerID] }

// Route resolves in into a Decision for persona.
func (r *Router) Route(in intent.Intent, persona string) (Decision, error) {
	b, ok := r.table[in.Tag]
	if !ok {
		return Decision{}, &NoHandlerError{Intent: in.Tag}
	}
	if len(b.Steps) > 0 {
		return r.routeOverview(in, persona, b)
	}
	desc, err := r.policy.Lookup(b.Tool)
	if err != nil {
		// New verified every binding; reaching this is a programming error.
		return Decision{}, err
	}
	if r.disabled[desc.Handler] {
		return Decision{}, &NoHandlerError{Intent: in.Tag, Handler: desc.Handler}
	}

	if in.Confidence < r.threshold {
		return Decision{}, &AmbiguousIntentError{
			Intent:     in.Tag,
			Confidence: in.Confidence,
			Threshold:  r.threshold,
			Candidates: r.routable(append([]intent.Tag{in.Tag}, in.Candidates()...)),
		}
	}

	h, err := r.policy.Handler(desc.Handler)
	if err != nil {
		return Decision{}, err
	}
	if !h.Admits(persona) {
		r.logger.Warn("router: persona denied", "persona", persona, "handler", h.ID, "intent", in.Tag)
		return Decision{}, &PersonaError{Persona: persona, Handler: h.ID}
	}

	args, err := r.bind(desc, b, in)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Intent:  in.Tag,
		Handler: desc.Handler,
		Tool:    desc.ID,
		Tier:    desc.Tier,
		Args:    args,
	}, nil
}

// bind assembles the argument map: defaults, then intent parameters that
// the tool declares. Undeclared parameters are dropped.
func (r *Router) bind(desc policy.ToolDescriptor, b Binding, in intent.Intent) (map[string]any, error) {
	args := maps.Clone(b.Defaults)
	if args == nil {
		args = make(map[string]any)
	}
	for name, v := range in.Params() {
		spec, ok := desc.Arg(name)
		if !ok {
			r.logger.Debug("router: dropping undeclared parameter", "tool", desc.ID, "param", name)
			continue
		}
		if spec.Type == policy.ArgString {
			if _, isString := v.(string); !isString {
				v = fmt.Sprint(v)
			}
		}
		args[name] = v
	}

	for _, name := range desc.RequiredArgs() {
		v, ok := args[name]
		if !ok || v == "" {
			return nil, &MissingParameterError{Tool: desc.ID, Field: name}
		}
	}

	if err := validateArgs(r.schemas[desc.ID], args); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrInvalidParameter, desc.ID, err)
	}
	return args, nil
}

// routable keeps the tags that have an enabled binding, without duplicates.
func (r *Router) routable(tags []intent.Tag) []intent.Tag {
	var out []intent.Tag
	for _, t := range tags {
		if slices.Contains(out, t) {
			continue
		}
		b, ok := r.table[t]
		if !ok {
			continue
		}
		hs, err := r.handlers(b)
		if err != nil || slices.ContainsFunc(hs, func(h string) bool { return r.disabled[h] }) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func compileSchema(desc policy.ToolDescriptor) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(desc.Schema())
	if err != nil {
		return nil, fmt.Errorf("router: marshal schema for %s: %w", desc.ID, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("router: unmarshal schema for %s: %w", desc.ID, err)
	}
	url := "tools/" + desc.ID + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("router: schema for %s: %w", desc.ID, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("router: compile schema for %s: %w", desc.ID, err)
	}
	return sch, nil
}

// validateArgs checks args against sch using their JSON form, so numeric
// Go types validate the same way the backend will see them.
func validateArgs(sch *jsonschema.Schema, args map[string]any) error {
	if sch == nil {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return err
	}
	return sch.Validate(inst)
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
