package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster membership and placement
	ActiveNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raftfleet_active_nodes",
			Help: "Active nodes per zone.",
		},
		[]string{"zone"},
	)

	ConsensusGroupsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftfleet_consensus_groups_total",
			Help: "Number of registered consensus groups.",
		},
	)

	NodeFailuresActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "raftfleet_node_failures_active",
			Help: "Nodes currently carrying an unresolved failure record.",
		},
	)

	// Per-node Raft role for each locally-run replica.
	RaftIsLeader = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "raftfleet_raft_is_leader",
			Help: "Whether this node is the Raft leader of a local replica (1=leader, 0=not).",
		},
		[]string{"group"},
	)

	// Per-node balancing loop (internal/manager)
	BalancingCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raftfleet_balancing_cycles_total",
			Help: "Total number of balancing reconciliation cycles completed.",
		},
	)

	BalancingCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "raftfleet_balancing_cycle_duration_seconds",
			Help:    "Time taken to reconcile all groups in one balancing tick.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReplicaStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raftfleet_replica_starts_total",
			Help: "Total number of local replica starts, by group.",
		},
		[]string{"group"},
	)

	ReplicaStopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raftfleet_replica_stops_total",
			Help: "Total number of local replica stops, by group.",
		},
		[]string{"group"},
	)

	// Leader dispatch (internal/leader)
	DispatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raftfleet_dispatch_requests_total",
			Help: "Total command()/query() dispatches, by group, kind, and result.",
		},
		[]string{"group", "kind", "result"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raftfleet_dispatch_duration_seconds",
			Help:    "Time taken for a full command()/query() dispatch, including retries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"group", "kind"},
	)

	LeaderCacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raftfleet_leader_cache_evictions_total",
			Help: "Total number of leader cache entries evicted after a failed dispatch.",
		},
	)

	// Purge controller (internal/purge)
	PurgeProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raftfleet_purge_probes_total",
			Help: "Total liveness probes issued by the purge controller, by result.",
		},
		[]string{"result"},
	)

	PurgeNodesPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "raftfleet_purge_nodes_purged_total",
			Help: "Total number of nodes purged after exceeding the failure time window.",
		},
	)

	// Cache refresher (internal/refresher)
	CacheRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raftfleet_cache_refresh_total",
			Help: "Total leader cache refresh outcomes, by result (unchanged, updated, evicted).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		ActiveNodes,
		ConsensusGroupsTotal,
		NodeFailuresActive,
		RaftIsLeader,
		BalancingCyclesTotal,
		BalancingCycleDuration,
		ReplicaStartsTotal,
		ReplicaStopsTotal,
		DispatchRequestsTotal,
		DispatchDuration,
		LeaderCacheEvictionsTotal,
		PurgeProbesTotal,
		PurgeNodesPurgedTotal,
		CacheRefreshTotal,
	)
}

// Handler returns the Prometheus HTTP handler for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an in-flight operation and records its duration to a
// histogram when it completes.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
