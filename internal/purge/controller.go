package purge

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/raftfleet/raftfleet/internal/cluster"
	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/telemetry/metric"
)

// ClusterGroup is the subset of the cluster group's Raft engine the
// controller submits purge/failure commands through.
type ClusterGroup interface {
	Apply(data []byte, timeout time.Duration) (any, error)
	IsLeader() bool
}

// ClusterQueries is the subset of ClusterState the controller reads.
type ClusterQueries interface {
	ActiveNodes() map[domain.ZoneID][]domain.NodeID
	NodeFailures() map[domain.NodeID]cluster.NodeFailure
}

// HealthSource reports how many of a node's locally-run replicas are
// currently unresponsive, as health-probed and reported by that node's own
// Manager (§4.7). A nil source reports zero failing replicas for every
// node, so only a node the prober finds unreachable is recorded as failing.
type HealthSource interface {
	FailingReplicaCount(node domain.NodeID) int
}

type zeroHealthSource struct{}

func (zeroHealthSource) FailingReplicaCount(domain.NodeID) int { return 0 }

// Config configures a PurgeController.
type Config struct {
	ReconnectInterval       time.Duration // node_purge_reconnect_interval
	FailureTimeWindow       time.Duration // node_purge_failure_time_window
	ThresholdFailingMembers int           // node_purge_threshold_failing_members

	// NodeAddr resolves a NodeID to a gossip address for reconnect
	// attempts. Nil disables reconnect (probe-only).
	NodeAddr func(domain.NodeID) string

	// ReconnectRate bounds how many reconnect attempts run per second,
	// so a large simultaneous outage doesn't storm the network.
	ReconnectRate rate.Limit

	ApplyTimeout time.Duration
	Logger       *slog.Logger
}

func (c *Config) setDefaults() {
	if c.ReconnectInterval <= 0 {
		c.ReconnectInterval = 60 * time.Second
	}
	if c.FailureTimeWindow <= 0 {
		c.FailureTimeWindow = 10 * time.Minute
	}
	if c.ThresholdFailingMembers <= 0 {
		c.ThresholdFailingMembers = 2
	}
	if c.ReconnectRate <= 0 {
		c.ReconnectRate = 5
	}
	if c.ApplyTimeout <= 0 {
		c.ApplyTimeout = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// PurgeController runs on the cluster group's leader only (§4.7).
type PurgeController struct {
	cfg     Config
	cluster ClusterGroup
	state   ClusterQueries
	prober  LivenessProber
	health  HealthSource
	limiter *rate.Limiter
	logger  *slog.Logger
	refSeq  uint64
}

// New constructs a PurgeController. health may be nil.
func New(cfg Config, clusterGroup ClusterGroup, state ClusterQueries, prober LivenessProber, health HealthSource) *PurgeController {
	cfg.setDefaults()
	if health == nil {
		health = zeroHealthSource{}
	}
	return &PurgeController{
		cfg:     cfg,
		cluster: clusterGroup,
		state:   state,
		prober:  prober,
		health:  health,
		limiter: rate.NewLimiter(cfg.ReconnectRate, 1),
		logger:  cfg.Logger,
	}
}

// Run ticks every ReconnectInterval until ctx is cancelled, running one
// Tick per period while this node is the cluster-group leader.
func (c *PurgeController) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ReconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.cluster.IsLeader() {
				continue
			}
			if err := c.Tick(ctx); err != nil {
				c.logger.Error("purge tick failed", "error", err)
			}
		}
	}
}

// Tick runs one pass of §4.7: probe connectivity, update failure records,
// then purge nodes whose failure has outlasted the configured window.
func (c *PurgeController) Tick(ctx context.Context) error {
	now := time.Now()

	for _, nodes := range c.state.ActiveNodes() {
		for _, node := range nodes {
			c.probeAndRecord(ctx, node, now)
		}
	}

	failures := c.state.NodeFailures()
	metric.NodeFailuresActive.Set(float64(len(failures)))

	for node, failure := range failures {
		if now.Sub(failure.FirstFailureAt) >= c.cfg.FailureTimeWindow {
			data, err := cluster.EncodePurgeNode(c.nextRef("purge"), node)
			if err != nil {
				return err
			}
			if _, err := c.cluster.Apply(data, c.cfg.ApplyTimeout); err != nil {
				return err
			}
			metric.PurgeNodesPurgedTotal.Inc()
			c.logger.Warn("node purged after exceeding failure window", "node", node)
		}
	}
	return nil
}

func (c *PurgeController) probeAndRecord(_ context.Context, node domain.NodeID, now time.Time) {
	reachable := c.prober == nil || c.prober.Probe(node)
	if !reachable && c.prober != nil && c.cfg.NodeAddr != nil {
		if c.limiter.Allow() {
			if addr := c.cfg.NodeAddr(node); addr != "" {
				if err := c.prober.Reconnect(node, addr); err == nil {
					reachable = c.prober.Probe(node)
				}
			}
		}
	}
	if reachable {
		metric.PurgeProbesTotal.WithLabelValues("reachable").Inc()
	} else {
		metric.PurgeProbesTotal.WithLabelValues("unreachable").Inc()
	}

	failingCount := c.health.FailingReplicaCount(node)
	if !reachable && failingCount < c.cfg.ThresholdFailingMembers {
		failingCount = c.cfg.ThresholdFailingMembers
	}
	if failingCount < c.cfg.ThresholdFailingMembers {
		// Below threshold: record_node_failure with a zero count clears
		// any existing failure timestamp (§4.7).
		failingCount = 0
	}

	data, err := cluster.EncodeRecordNodeFailure(c.nextRef("failure-"+string(node)), node, failingCount)
	if err != nil {
		c.logger.Error("encode record_node_failure failed", "node", node, "error", err)
		return
	}
	if _, err := c.cluster.Apply(data, c.cfg.ApplyTimeout); err != nil {
		c.logger.Error("record_node_failure failed", "node", node, "error", err)
	}
}

func (c *PurgeController) nextRef(tag string) string {
	c.refSeq++
	return tag + "-" + time.Now().Format("150405.000000000") + "-" + string(rune(c.refSeq%26+'a'))
}
