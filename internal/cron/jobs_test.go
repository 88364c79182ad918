package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/scalegate/internal/cron"
	"github.com/flemzord/scalegate/internal/cron/crontest"
	"github.com/flemzord/scalegate/internal/gate"
	"github.com/flemzord/scalegate/internal/policy"
)

type gauge struct{ last int }

func (g *gauge) SetPending(n int) { g.last = n }

func TestConfirmationSweepJob_Run(t *testing.T) {
	t.Parallel()

	sw := &crontest.MockSweeper{Expired: 2, Reclaimed: 1, Pending: 4}
	g := &gauge{last: -1}
	j := &cron.ConfirmationSweepJob{Gate: sw, Gauge: g, Logger: slog.Default()}

	if err := j.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sw.SweepCalls() != 1 {
		t.Errorf("sweep calls = %d, want 1", sw.SweepCalls())
	}
	if g.last != 4 {
		t.Errorf("gauge = %d, want 4", g.last)
	}
}

func TestConfirmationSweepJob_Defaults(t *testing.T) {
	t.Parallel()

	j := &cron.ConfirmationSweepJob{}
	if j.Name() != "confirmation_sweep" || j.Schedule() != "* * * * *" {
		t.Errorf("name/schedule = %q/%q", j.Name(), j.Schedule())
	}
	j.ScheduleExpr = "*/5 * * * *"
	if j.Schedule() != "*/5 * * * *" {
		t.Errorf("schedule = %q", j.Schedule())
	}
}

func TestConfirmationSweepJob_CancelledContext(t *testing.T) {
	t.Parallel()

	sw := &crontest.MockSweeper{}
	j := &cron.ConfirmationSweepJob{Gate: sw, Logger: slog.Default()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if sw.SweepCalls() != 0 {
		t.Error("cancelled job must not sweep")
	}
}

func TestConfirmationSweepJob_ExpiresRealGate(t *testing.T) {
	t.Parallel()

	reg, err := policy.Default()
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g, err := gate.New(gate.Config{Policy: reg, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Request(context.Background(), "s1", "stop_nodes", map[string]any{"nodes": "c1n1"}); err != nil {
		t.Fatal(err)
	}

	gg := &gauge{}
	j := &cron.ConfirmationSweepJob{Gate: g, Gauge: gg, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gg.last != 1 {
		t.Fatalf("pending before timeout = %d, want 1", gg.last)
	}

	now = now.Add(gate.DefaultTimeout + time.Second)
	if err := j.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gg.last != 0 {
		t.Errorf("pending after timeout = %d, want 0", gg.last)
	}
}

func TestAuditPruneJob_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	store := &crontest.MockPruner{}
	j := &cron.AuditPruneJob{
		Store:     store,
		Retention: 24 * time.Hour,
		Logger:    slog.Default(),
		Now:       func() time.Time { return now },
	}
	if j.Name() != "audit_prune" || j.Schedule() != "0 * * * *" {
		t.Errorf("name/schedule = %q/%q", j.Name(), j.Schedule())
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	cutoffs := store.Cutoffs()
	if len(cutoffs) != 1 || !cutoffs[0].Equal(now.Add(-24*time.Hour)) {
		t.Errorf("cutoffs = %v", cutoffs)
	}
}

func TestAuditPruneJob_Error(t *testing.T) {
	t.Parallel()

	j := &cron.AuditPruneJob{Store: &crontest.MockPruner{Err: errors.New("disk full")}, Logger: slog.Default()}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
