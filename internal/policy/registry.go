package policy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Registry is the read-only tool policy. It is validated once at
// construction and never mutated afterwards, so it is safe for concurrent
// use without locking.
type Registry struct {
	tools    map[string]ToolDescriptor
	handlers map[string]HandlerDescriptor
	order    []string // handler ids in declaration order
}

// NewRegistry validates handlers and tools and builds a Registry.
// Every problem found is reported through a joined error; a non-nil error
// means the policy is unusable and the process should not start.
func NewRegistry(handlers []HandlerDescriptor, tools []ToolDescriptor) (*Registry, error) {
	r := &Registry{
		tools:    make(map[string]ToolDescriptor, len(tools)),
		handlers: make(map[string]HandlerDescriptor, len(handlers)),
	}
	var errs []error

	for _, t := range tools {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			errs = append(errs, errors.New("policy: tool id must not be empty"))
			continue
		}
		if !t.Tier.Valid() {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTier, id))
		}
		if _, dup := r.tools[id]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateTool, id))
			continue
		}
		t.Args = slices.Clone(t.Args)
		r.tools[id] = t
	}

	owners := make(map[string]string, len(tools))
	for _, h := range handlers {
		id := strings.TrimSpace(h.ID)
		if id == "" {
			errs = append(errs, errors.New("policy: handler id must not be empty"))
			continue
		}
		if _, dup := r.handlers[id]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateHandler, id))
			continue
		}
		for _, toolID := range h.Tools {
			desc, ok := r.tools[toolID]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s lists %s", ErrUnregisteredTool, id, toolID))
				continue
			}
			if prev, taken := owners[toolID]; taken {
				errs = append(errs, fmt.Errorf("%w: %s (%s, %s)", ErrSharedTool, toolID, prev, id))
				continue
			}
			owners[toolID] = id
			if desc.Handler != "" && desc.Handler != id {
				errs = append(errs, fmt.Errorf("%w: %s declares %s but is listed by %s", ErrOwnerMismatch, toolID, desc.Handler, id))
				continue
			}
			desc.Handler = id
			r.tools[toolID] = desc
		}
		h.Personas = slices.Clone(h.Personas)
		h.Tools = slices.Clone(h.Tools)
		r.handlers[id] = h
		r.order = append(r.order, id)
	}

	for id := range r.tools {
		if _, ok := owners[id]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrOrphanTool, id))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup returns the descriptor for toolID.
func (r *Registry) Lookup(toolID string) (ToolDescriptor, error) {
	d, ok := r.tools[toolID]
	if !ok {
		return ToolDescriptor{}, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
	}
	d.Args = slices.Clone(d.Args)
	return d, nil
}

// WhitelistFor returns the set of tools the handler may invoke.
// An unknown handler has an empty whitelist.
func (r *Registry) WhitelistFor(handlerID string) map[string]struct{} {
	h, ok := r.handlers[handlerID]
	if !ok {
		return map[string]struct{}{}
	}
	set := make(map[string]struct{}, len(h.Tools))
	for _, id := range h.Tools {
		set[id] = struct{}{}
	}
	return set
}

// Allows reports whether toolID is on the handler's whitelist.
func (r *Registry) Allows(handlerID, toolID string) bool {
	h, ok := r.handlers[handlerID]
	if !ok {
		return false
	}
	return slices.Contains(h.Tools, toolID)
}

// Handler returns the descriptor for handlerID.
func (r *Registry) Handler(handlerID string) (HandlerDescriptor, error) {
	h, ok := r.handlers[handlerID]
	if !ok {
		return HandlerDescriptor{}, fmt.Errorf("%w: %s", ErrHandlerNotFound, handlerID)
	}
	h.Personas = slices.Clone(h.Personas)
	h.Tools = slices.Clone(h.Tools)
	return h, nil
}

// Handlers returns all handlers in declaration order.
func (r *Registry) Handlers() []HandlerDescriptor {
	out := make([]HandlerDescriptor, 0, len(r.order))
	for _, id := range r.order {
		h, _ := r.Handler(id)
		out = append(out, h)
	}
	return out
}

// Tools returns all tool descriptors grouped by handler, in the order each
// handler lists them.
func (r *Registry) Tools() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, hid := range r.order {
		for _, tid := range r.handlers[hid].Tools {
			d, _ := r.Lookup(tid)
			out = append(out, d)
		}
	}
	return out
}
