package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLookupMetricsRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newLookupMetrics(registry, Config{ServiceName: "patentapi", Environment: "test"})

	m.IncLookup("ok", "EPO", "hit")
	m.IncLookup("ok", "EPO", "hit")
	m.IncLookup("not_found", "", "miss")
	m.ObserveUpstreamDuration("EPO", "success", 120*time.Millisecond)
	m.IncRateLimitDecision("free", false)
	m.SetStaleBacklog(7)
	m.IncRefreshProcessed("success")

	hits := testutil.ToFloat64(m.lookupRequests.WithLabelValues("ok", "EPO", "hit"))
	if hits != 2 {
		t.Fatalf("hit count = %v, want 2", hits)
	}
	misses := testutil.ToFloat64(m.lookupRequests.WithLabelValues("not_found", "none", "miss"))
	if misses != 1 {
		t.Fatalf("empty source should record as none, got %v", misses)
	}
	denied := testutil.ToFloat64(m.rateLimitDecisions.WithLabelValues("free", "denied"))
	if denied != 1 {
		t.Fatalf("denied count = %v, want 1", denied)
	}
	backlog := testutil.ToFloat64(m.cacheStaleBacklog)
	if backlog != 7 {
		t.Fatalf("backlog = %v, want 7", backlog)
	}
}

func TestLookupMetricsNilSafe(t *testing.T) {
	var m *LookupMetrics
	m.IncLookup("ok", "EPO", "hit")
	m.ObserveUpstreamDuration("EPO", "success", time.Second)
	m.IncRateLimitDecision("free", true)
	m.SetStaleBacklog(1)
	m.IncRefreshProcessed("failed")
}
