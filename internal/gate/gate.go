// Package gate holds destructive tool calls until the requesting session
// confirms them. Each pending call is a small state machine with a deadline.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/scalegate/internal/policy"
	"github.com/google/uuid"
)

// DefaultTimeout is how long a confirmation stays pending.
const DefaultTimeout = 300 * time.Second

// Policy is the subset of the policy registry the gate needs.
type Policy interface {
	Lookup(toolID string) (policy.ToolDescriptor, error)
}

// Recorder receives every confirmation that reaches a terminal state.
type Recorder interface {
	Record(ctx context.Context, c Confirmation) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, c Confirmation) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, c Confirmation) error { return f(ctx, c) }

// Config holds the configuration for a Gate.
type Config struct {
	Policy Policy

	// Timeout is the confirmation lifetime. Zero means DefaultTimeout.
	Timeout time.Duration

	// Retention is how long resolved entries stay queryable before Sweep
	// reclaims them. Zero means Timeout.
	Retention time.Duration

	Recorder Recorder
	Logger   *slog.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

type pendingKey struct {
	session, tool, signature string
}

type entry struct {
	mu sync.Mutex
	c  Confirmation
}

// expire moves a pending entry past its deadline to EXPIRED and reports
// whether it did. Callers hold e.mu.
func (e *entry) expire(now time.Time) bool {
	if e.c.Status != StatusPending || now.Before(e.c.ExpiresAt) {
		return false
	}
	e.c.Status = StatusExpired
	e.c.ResolvedAt = now
	return true
}

func (e *entry) key() pendingKey {
	return pendingKey{e.c.SessionID, e.c.Tool, e.c.Signature}
}

// Gate owns the confirmation table. The table lock is held only to find or
// insert entries; state transitions take the entry's own lock, so work on
// different ids does not contend. Lock order is table then entry, and no
// code path takes the table lock while holding an entry lock.
type Gate struct {
	policy    Policy
	timeout   time.Duration
	retention time.Duration
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	entries map[string]*entry
	pending map[pendingKey]string
}

// New creates a Gate.
func New(cfg Config) (*Gate, error) {
	if cfg.Policy == nil {
		return nil, errors.New("gate: policy is required")
	}
	if cfg.Timeout < 0 || cfg.Retention < 0 {
		return nil, errors.New("gate: timeout and retention must not be negative")
	}
	g := &Gate{
		policy:    cfg.Policy,
		timeout:   cfg.Timeout,
		retention: cfg.Retention,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		now:       cfg.Now,
		newID:     cfg.NewID,
		entries:   make(map[string]*entry),
		pending:   make(map[pendingKey]string),
	}
	if g.timeout == 0 {
		g.timeout = DefaultTimeout
	}
	if g.retention == 0 {
		g.retention = g.timeout
	}
	if g.logger == nil {
		g.logger = slog.New(nopHandler{})
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.newID == nil {
		g.newID = uuid.NewString
	}
	return g, nil
}

// Timeout returns the confirmation lifetime.
func (g *Gate) Timeout() time.Duration { return g.timeout }

// Request gates a call of toolID with args on behalf of sessionID.
// LOW risk tools proceed at once and leave no state. Other tools get a
// pending confirmation; an identical unexpired request from the same
// session gets the same one back.
func (g *Gate) Request(ctx context.Context, sessionID, toolID string, args map[string]any) (Outcome, error) {
	desc, err := g.policy.Lookup(toolID)
	if err != nil {
		return Outcome{}, err
	}
	if !desc.RequiresConfirmation() {
		return Outcome{Decision: Proceed, Tool: toolID, Args: maps.Clone(args)}, nil
	}

	sig, err := Signature(args)
	if err != nil {
		return Outcome{}, err
	}
	key := pendingKey{sessionID, toolID, sig}
	now := g.now()

	var stale *Confirmation

	g.mu.Lock()
	if id, ok := g.pending[key]; ok {
		e := g.entries[id]
		e.mu.Lock()
		if e.c.Status == StatusPending && now.Before(e.c.ExpiresAt) {
			snap := e.c.clone()
			e.mu.Unlock()
			g.mu.Unlock()
			g.logger.Debug("gate: reusing pending confirmation", "id", id, "session", sessionID, "tool", toolID)
			return Outcome{Decision: AwaitingConfirmation, Tool: toolID, Confirmation: &snap}, nil
		}
		if e.expire(now) {
			snap := e.c.clone()
			stale = &snap
		}
		e.mu.Unlock()
		delete(g.pending, key)
	}

	id := g.newID()
	for _, taken := g.entries[id]; taken; _, taken = g.entries[id] {
		id = g.newID()
	}
	c := Confirmation{
		ID:        id,
		SessionID: sessionID,
		Tool:      toolID,
		Tier:      desc.Tier,
		Args:      maps.Clone(args),
		Signature: sig,
		AckPhrase: desc.AcknowledgementPhrase(),
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(g.timeout),
	}
	if c.Args == nil {
		c.Args = map[string]any{}
	}
	g.entries[id] = &entry{c: c}
	g.pending[key] = id
	g.mu.Unlock()

	if stale != nil {
		g.finish(ctx, *stale)
	}
	g.logger.Info("gate: confirmation requested",
		"id", id, "session", sessionID, "tool", toolID, "tier", desc.Tier, "expires_at", c.ExpiresAt)

	snap := c.clone()
	return Outcome{Decision: AwaitingConfirmation, Tool: toolID, Confirmation: &snap}, nil
}

// Confirm resolves a pending confirmation in favour of running it. The
// returned arguments are the ones captured by Request. ack must repeat the
// acknowledgement phrase when the confirmation carries one; a wrong ack
// leaves the entry pending.
func (g *Gate) Confirm(ctx context.Context, id, sessionID, ack string) (Outcome, error) {
	e := g.lookup(id)
	if e == nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	now := g.now()
	e.mu.Lock()
	expiredNow := e.expire(now)
	snap := e.c.clone()

	var err error
	switch {
	case e.c.SessionID != sessionID:
		err = fmt.Errorf("%w: %s", ErrSessionMismatch, id)
	case e.c.Status == StatusExpired:
		err = fmt.Errorf("%w: %s", ErrExpired, id)
	case e.c.Status.Terminal():
		err = fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, e.c.Status)
	case e.c.AckPhrase != "" && !acknowledges(ack, e.c.AckPhrase):
		err = fmt.Errorf("%w: reply with %q to confirm %s", ErrAcknowledgementMismatch, e.c.AckPhrase, id)
	default:
		e.c.Status = StatusConfirmed
		e.c.ResolvedAt = now
		snap = e.c.clone()
	}
	e.mu.Unlock()

	if expiredNow {
		g.settle(ctx, snap)
	}
	if err != nil {
		return Outcome{}, err
	}

	g.settle(ctx, snap)
	g.logger.Info("gate: confirmation confirmed", "id", id, "session", sessionID, "tool", snap.Tool)
	return Outcome{Decision: Proceed, Tool: snap.Tool, Args: maps.Clone(snap.Args), Confirmation: &snap}, nil
}

// Reject resolves a pending confirmation against running it and returns the
// entry's resulting status. Rejecting an entry that is already rejected or
// expired is a no-op; rejecting a confirmed entry fails.
func (g *Gate) Reject(ctx context.Context, id, sessionID string) (Status, error) {
	e := g.lookup(id)
	if e == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	now := g.now()
	e.mu.Lock()
	expiredNow := e.expire(now)
	rejected := false

	var err error
	switch {
	case e.c.SessionID != sessionID:
		err = fmt.Errorf("%w: %s", ErrSessionMismatch, id)
	case e.c.Status == StatusConfirmed:
		err = fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, e.c.Status)
	case e.c.Status == StatusPending:
		e.c.Status = StatusRejected
		e.c.ResolvedAt = now
		rejected = true
	}
	snap := e.c.clone()
	e.mu.Unlock()

	if expiredNow || rejected {
		g.settle(ctx, snap)
	}
	if err != nil {
		return "", err
	}
	if rejected {
		g.logger.Info("gate: confirmation rejected", "id", id, "session", sessionID, "tool", snap.Tool)
	}
	return snap.Status, nil
}

// Get returns a copy of the confirmation, expiring it first if due.
func (g *Gate) Get(ctx context.Context, id string) (Confirmation, error) {
	e := g.lookup(id)
	if e == nil {
		return Confirmation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	expiredNow := e.expire(g.now())
	snap := e.c.clone()
	e.mu.Unlock()
	if expiredNow {
		g.settle(ctx, snap)
	}
	return snap, nil
}

// Pending lists the session's unexpired pending confirmations, oldest first.
func (g *Gate) Pending(ctx context.Context, sessionID string) []Confirmation {
	g.mu.Lock()
	var candidates []*entry
	for _, id := range g.pending {
		if e := g.entries[id]; e != nil {
			candidates = append(candidates, e)
		}
	}
	g.mu.Unlock()

	now := g.now()
	var out []Confirmation
	for _, e := range candidates {
		e.mu.Lock()
		if e.c.SessionID != sessionID {
			e.mu.Unlock()
			continue
		}
		expiredNow := e.expire(now)
		snap := e.c.clone()
		e.mu.Unlock()
		if expiredNow {
			g.settle(ctx, snap)
			continue
		}
		if snap.Status == StatusPending {
			out = append(out, snap)
		}
	}
	sortByCreation(out)
	return out
}

// PendingCount returns the number of entries currently indexed as pending.
// Entries past their deadline count until they are next read or swept.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Sweep expires overdue entries and drops resolved entries older than the
// retention period. Correctness never depends on it; it only bounds memory.
func (g *Gate) Sweep(ctx context.Context) (expired, reclaimed int) {
	g.mu.Lock()
	all := make(map[string]*entry, len(g.entries))
	maps.Copy(all, g.entries)
	g.mu.Unlock()

	now := g.now()
	var drop []string
	for id, e := range all {
		e.mu.Lock()
		expiredNow := e.expire(now)
		snap := e.c.clone()
		e.mu.Unlock()
		if expiredNow {
			expired++
			g.settle(ctx, snap)
		}
		if snap.Status.Terminal() && !now.Before(snap.ResolvedAt.Add(g.retention)) {
			drop = append(drop, id)
		}
	}

	if len(drop) > 0 {
		g.mu.Lock()
		for _, id := range drop {
			if _, ok := g.entries[id]; ok {
				delete(g.entries, id)
				reclaimed++
			}
		}
		g.mu.Unlock()
	}
	return expired, reclaimed
}

func (g *Gate) lookup(id string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entries[id]
}

// settle drops a resolved entry from the pending index and records it.
// It must be called without any entry lock held.
func (g *Gate) settle(ctx context.Context, c Confirmation) {
	key := pendingKey{c.SessionID, c.Tool, c.Signature}
	g.mu.Lock()
	if g.pending[key] == c.ID {
		delete(g.pending, key)
	}
	g.mu.Unlock()
	g.finish(ctx, c)
}

// finish logs and records a confirmation whose pending key is already gone.
func (g *Gate) finish(ctx context.Context, c Confirmation) {
	if c.Status == StatusExpired {
		g.logger.Info("gate: confirmation expired", "id", c.ID, "session", c.SessionID, "tool", c.Tool)
	}
	g.record(ctx, c)
}

func (g *Gate) record(ctx context.Context, c Confirmation) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.Record(ctx, c); err != nil {
		g.logger.Error("gate: recording confirmation failed", "id", c.ID, "error", err)
	}
}

func sortByCreation(cs []Confirmation) {
	slices.SortFunc(cs, func(a, b Confirmation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
