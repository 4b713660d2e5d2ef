package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus("credit", reg)
	if err != nil {
		t.Fatalf("NewPrometheus: %v", err)
	}

	p.RecordTransition("pending", "processing")
	p.RecordTransition("pending", "processing")
	p.RecordConflict("payment")
	p.RecordAssessment("approve", "applied", 20*time.Millisecond)
	p.RecordValuationCall("ok", 2, time.Second)
	p.RecordCircuitState("valuation", CircuitOpen)
	p.RecordPayout(31200)
	p.RecordPublish("redis", false)

	if got := testutil.ToFloat64(p.transitions.WithLabelValues("pending", "processing")); got != 2 {
		t.Fatalf("transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.conflicts.WithLabelValues("payment")); got != 1 {
		t.Fatalf("conflicts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.circuitState.WithLabelValues("valuation")); got != float64(CircuitOpen) {
		t.Fatalf("circuit state = %v, want %v", got, float64(CircuitOpen))
	}
	if got := testutil.ToFloat64(p.payoutAmount); got != 31200 {
		t.Fatalf("payout amount = %v, want 31200", got)
	}
	if got := testutil.ToFloat64(p.publishes.WithLabelValues("redis", "false")); got != 1 {
		t.Fatalf("publishes = %v, want 1", got)
	}
}

func TestPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheus("credit", reg); err != nil {
		t.Fatalf("first NewPrometheus: %v", err)
	}
	if _, err := NewPrometheus("credit", reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestCircuitStateString(t *testing.T) {
	if CircuitHalfOpen.String() != "half-open" || CircuitState(9).String() != "unknown" {
		t.Fatal("unexpected CircuitState strings")
	}
	var c Collector = OrNoOp(nil)
	c.RecordPayout(1)
}
