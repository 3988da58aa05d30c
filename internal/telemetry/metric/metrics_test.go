package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	ActiveNodes.WithLabelValues("z1").Set(3)
	ConsensusGroupsTotal.Set(2)
	RaftIsLeader.WithLabelValues("g1").Set(1)

	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Handler() status = %d, want 200", rec.Code)
	}

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := string(body)

	for _, want := range []string{
		`raftfleet_active_nodes{zone="z1"} 3`,
		"raftfleet_consensus_groups_total 2",
		`raftfleet_raft_is_leader{group="g1"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestDispatchCountersAndDuration(t *testing.T) {
	DispatchRequestsTotal.WithLabelValues("g1", "command", "ok").Inc()
	DispatchRequestsTotal.WithLabelValues("g1", "command", "ok").Inc()
	DispatchRequestsTotal.WithLabelValues("g1", "query", "no_leader").Inc()

	timer := NewTimer()
	timer.ObserveDurationVec(DispatchDuration, "g1", "command")

	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	if !strings.Contains(out, `raftfleet_dispatch_requests_total{group="g1",kind="command",result="ok"} 2`) {
		t.Error("expected dispatch command ok counter at 2")
	}
	if !strings.Contains(out, `raftfleet_dispatch_requests_total{group="g1",kind="query",result="no_leader"} 1`) {
		t.Error("expected dispatch query no_leader counter at 1")
	}
	if !strings.Contains(out, "raftfleet_dispatch_duration_seconds_count") {
		t.Error("expected dispatch duration histogram count series")
	}
}

func TestPurgeAndCacheCounters(t *testing.T) {
	PurgeProbesTotal.WithLabelValues("unreachable").Inc()
	PurgeNodesPurgedTotal.Inc()
	CacheRefreshTotal.WithLabelValues("evicted").Inc()

	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	if !strings.Contains(out, `raftfleet_purge_probes_total{result="unreachable"} 1`) {
		t.Error("expected purge probe counter")
	}
	if !strings.Contains(out, "raftfleet_purge_nodes_purged_total 1") {
		t.Error("expected purge nodes purged counter")
	}
	if !strings.Contains(out, `raftfleet_cache_refresh_total{result="evicted"} 1`) {
		t.Error("expected cache refresh evicted counter")
	}
}
