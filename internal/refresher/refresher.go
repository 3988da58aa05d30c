// Package refresher implements CacheRefresher (§4.8): a low-priority
// background pass that keeps a node's LeaderCache honest between the
// opportunistic updates LeaderResolver already does on the request path.
package refresher

import (
	"context"
	"log/slog"
	"time"

	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/leader"
	"github.com/raftfleet/raftfleet/internal/telemetry/metric"
)

// Config configures a CacheRefresher.
type Config struct {
	Interval time.Duration // leader_pid_cache_refresh_interval
	Timeout  time.Duration // per-entry WhoIsLeader call timeout
	Logger   *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = 300 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// CacheRefresher re-resolves every LeaderCache entry via leader_hint on a
// fixed period. It is opportunistic: a resolution failure just evicts the
// entry, the way a failed RPC on the hot path already would.
type CacheRefresher struct {
	cfg     Config
	cache   *leader.Cache
	cluster leader.ClusterQuerier
	t       leader.Transport
	logger  *slog.Logger
}

// New constructs a CacheRefresher.
func New(cfg Config, cache *leader.Cache, cluster leader.ClusterQuerier, t leader.Transport) *CacheRefresher {
	cfg.setDefaults()
	return &CacheRefresher{cfg: cfg, cache: cache, cluster: cluster, t: t, logger: cfg.Logger}
}

// Run ticks every Interval until ctx is cancelled, running one RefreshAll
// pass per period.
func (r *CacheRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll re-resolves every currently cached group, per §4.8: ask
// ClusterState for the leader hint, confirm it with the hinted node via
// WhoIsLeader, then update on a mismatch or evict on no answer.
func (r *CacheRefresher) RefreshAll(ctx context.Context) {
	for name, current := range r.cache.Entries() {
		r.refreshOne(ctx, name, current)
	}
}

func (r *CacheRefresher) refreshOne(ctx context.Context, name domain.GroupName, current domain.ReplicaRef) {
	hintNode, ok := r.cluster.LeaderHint(name)
	if !ok {
		r.cache.Unset(name)
		metric.CacheRefreshTotal.WithLabelValues("evicted").Inc()
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	fresh, found, err := r.t.WhoIsLeader(callCtx, hintNode, name)
	cancel()

	if err != nil || !found {
		r.logger.Debug("cache refresh found no leader, evicting", "group", name, "error", err)
		r.cache.Unset(name)
		metric.CacheRefreshTotal.WithLabelValues("evicted").Inc()
		return
	}

	if fresh != current {
		r.cache.Set(name, fresh)
		metric.CacheRefreshTotal.WithLabelValues("updated").Inc()
		return
	}
	metric.CacheRefreshTotal.WithLabelValues("unchanged").Inc()
}
