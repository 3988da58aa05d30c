package leader

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/telemetry/metric"
)

// Config holds the per-call tuning parameters named in §6.1's command/query
// signature (timeout, retry, retry_interval).
type Config struct {
	Timeout       time.Duration
	Retry         int
	RetryInterval time.Duration
}

// DefaultConfig matches the defaults documented in §6.1.
func DefaultConfig() Config {
	return Config{
		Timeout:       500 * time.Millisecond,
		Retry:         3,
		RetryInterval: 1000 * time.Millisecond,
	}
}

// Resolver implements the call_with_retry protocol of §4.5: dispatch via
// the cache, falling back to discovery, with bounded retry and cache
// invalidation on RPC failure.
type Resolver struct {
	cache     *Cache
	cluster   ClusterQuerier
	transport Transport
	logger    *slog.Logger

	sf singleflight.Group // dedupes concurrent discovery broadcasts per group
}

// NewResolver constructs a Resolver over the given cache, cluster-state
// querier, and RPC transport.
func NewResolver(cache *Cache, cluster ClusterQuerier, transport Transport, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cache: cache, cluster: cluster, transport: transport, logger: logger}
}

// Dispatch runs op against name's current leader, per §4.5's pseudocode.
// It returns domain.ErrNoLeader once the retry budget is exhausted.
func (r *Resolver) Dispatch(ctx context.Context, name domain.GroupName, op Operation, cfg Config) (any, error) {
	kind := kindLabel(op.Kind)
	timer := metric.NewTimer()
	defer timer.ObserveDurationVec(metric.DispatchDuration, string(name), kind)

	triesLeft := cfg.Retry + 1

	for triesLeft > 0 {
		handle, ok := r.cache.Get(name)
		if !ok {
			found, ferr := r.discover(ctx, name)
			if ferr != nil {
				triesLeft--
				if triesLeft == 0 {
					break
				}
				if !sleep(ctx, cfg.RetryInterval) {
					metric.DispatchRequestsTotal.WithLabelValues(string(name), kind, "no_leader").Inc()
					return nil, domain.ErrNoLeader
				}
				continue
			}
			handle = found
		}

		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		result, err := r.transport.Dispatch(callCtx, handle, op)
		cancel()

		if err == nil {
			metric.DispatchRequestsTotal.WithLabelValues(string(name), kind, "ok").Inc()
			return result, nil
		}

		r.logger.Warn("leader dispatch failed, evicting cache entry",
			"group", name, "node", handle.Node, "error", err)
		r.cache.Unset(name)
		metric.LeaderCacheEvictionsTotal.Inc()

		triesLeft--
		if triesLeft == 0 {
			break
		}
		if !sleep(ctx, cfg.RetryInterval) {
			metric.DispatchRequestsTotal.WithLabelValues(string(name), kind, "no_leader").Inc()
			return nil, domain.ErrNoLeader
		}
	}

	metric.DispatchRequestsTotal.WithLabelValues(string(name), kind, "no_leader").Inc()
	return nil, domain.ErrNoLeader
}

func kindLabel(k OperationKind) string {
	if k == OpQuery {
		return "query"
	}
	return "command"
}

// discover implements §4.5.1: ask ClusterState for a leader hint first,
// broadcast to all active nodes otherwise. Concurrent discovery attempts
// for the same group are collapsed into one broadcast via singleflight.
func (r *Resolver) discover(ctx context.Context, name domain.GroupName) (domain.ReplicaRef, error) {
	v, err, _ := r.sf.Do(string(name), func() (any, error) {
		return r.discoverOnce(ctx, name)
	})
	if err != nil {
		return domain.ReplicaRef{}, err
	}
	return v.(domain.ReplicaRef), nil
}

func (r *Resolver) discoverOnce(ctx context.Context, name domain.GroupName) (domain.ReplicaRef, error) {
	if node, ok := r.cluster.LeaderHint(name); ok {
		if ref, found, err := r.transport.WhoIsLeader(ctx, node, name); err == nil && found {
			r.cache.Set(name, ref)
			return ref, nil
		}
	}

	for _, nodes := range r.cluster.ActiveNodes() {
		for _, node := range nodes {
			ref, found, err := r.transport.WhoIsLeader(ctx, node, name)
			if err == nil && found {
				r.cache.Set(name, ref)
				return ref, nil
			}
		}
	}

	return domain.ReplicaRef{}, domain.ErrNoLeader
}

// sleep waits for d or returns false early if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
