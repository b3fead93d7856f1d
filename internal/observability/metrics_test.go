package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "POST", 201, 3*time.Millisecond)
	m.RecordRequest("/tickets", "POST", 201, 2*time.Millisecond)
	m.RecordError("/tickets/:id/transitions", "POST", "FORBIDDEN")
	m.RecordTransition("approve", "ok")

	snap := m.Snapshot()
	if got := snap.Requests["/tickets|POST|201"]; got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := snap.RequestMillis["/tickets|POST|201"]; got != 5 {
		t.Errorf("request millis = %d, want 5", got)
	}
	if got := snap.Errors["/tickets/:id/transitions|POST|FORBIDDEN"]; got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
	if got := snap.Transitions["approve|ok"]; got != 1 {
		t.Errorf("transitions = %d, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordTransition("assign", "ok")
	if snap := m.Snapshot(); snap.Requests != nil {
		t.Fatal("nil metrics should return empty snapshot")
	}
}
