package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := New()
	m.IntentClassified("list_filesystems", "pattern")
	m.IntentClassified("list_filesystems", "pattern")
	m.RoutingError("no_handler")
	m.GateOutcome("awaiting_confirmation")
	m.Dispatch("list_filesystems", "ok", 120*time.Millisecond)
	m.SetPending(3)

	if got := testutil.ToFloat64(m.intents.WithLabelValues("list_filesystems", "pattern")); got != 2 {
		t.Errorf("intents = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.routingErrors.WithLabelValues("no_handler")); got != 1 {
		t.Errorf("routing errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatches.WithLabelValues("list_filesystems", "ok")); got != 1 {
		t.Errorf("dispatches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pending); got != 3 {
		t.Errorf("pending = %v, want 3", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.IntentClassified("x", "pattern")
	m.RoutingError("x")
	m.GateOutcome("x")
	m.Dispatch("x", "ok", time.Second)
	m.SetPending(1)
	m.RateLimited()
	if m.Registry() != nil {
		t.Error("nil metrics must have no registry")
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.GateOutcome("confirmed")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `scalegate_gate_outcomes_total{outcome="confirmed"} 1`) {
		t.Errorf("exposition missing gate outcome:\n%s", body)
	}
}
