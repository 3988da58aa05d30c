// Package metric provides Prometheus metrics for raftfleet.
//
// Metrics cover cluster membership and placement, the per-node balancing
// loop, command/query dispatch, and the purge controller. All metrics are
// registered against the default Prometheus registry at package init and
// exposed via Handler() for a /metrics HTTP endpoint.
package metric
