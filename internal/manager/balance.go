package manager

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raftfleet/raftfleet/internal/cluster"
	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/telemetry/metric"
)

// Run starts the balancing loop (§4.6.2) and blocks until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.BalancingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Reconcile(ctx); err != nil {
				m.logger.Error("balancing tick failed", "error", err)
			}
		}
	}
}

// Reconcile runs one balancing pass: for every registered group, start a
// local replica if this node should host one it doesn't, or stop one it
// shouldn't still host (§4.6.2). Groups are reconciled concurrently, up to
// BalancingConcurrency, so one slow start doesn't stall the rest.
func (m *Manager) Reconcile(ctx context.Context) error {
	timer := metric.NewTimer()
	defer func() {
		metric.BalancingCyclesTotal.Inc()
		timer.ObserveDuration(metric.BalancingCycleDuration)
	}()

	groups := m.state.ConsensusGroups()
	names := make([]domain.GroupName, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	metric.ConsensusGroupsTotal.Set(float64(len(groups)))

	totalActive := 0
	for zone, nodes := range m.state.ActiveNodes() {
		totalActive += len(nodes)
		metric.ActiveNodes.WithLabelValues(string(zone)).Set(float64(len(nodes)))
	}

	m.reportLocalLeaderGauge()
	m.expireTombstones()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.BalancingConcurrency)

	for _, name := range names {
		name := name
		nReplica := groups[name]
		g.Go(func() error {
			return m.reconcileGroup(gctx, name, nReplica, totalActive)
		})
	}
	return g.Wait()
}

func (m *Manager) reconcileGroup(ctx context.Context, name domain.GroupName, nReplica, totalActive int) error {
	desired, ok := m.state.DesiredPlacement(name)
	if !ok {
		return nil
	}
	shouldHost := containsNode(desired, m.cfg.NodeID)

	m.mu.Lock()
	_, doesHost := m.replicas[name]
	m.mu.Unlock()

	switch {
	case shouldHost && !doesHost:
		if _, err := m.startLocalReplica(name, false); err != nil {
			return err
		}
		metric.ReplicaStartsTotal.WithLabelValues(string(name)).Inc()
		m.requestJoin(ctx, name)
		data, err := cluster.EncodeReportMemberUp(m.nextRef("balance-up-"+string(name)), name, m.cfg.NodeID)
		if err != nil {
			return err
		}
		_, err = m.cluster.Apply(data, m.cfg.ApplyTimeout)
		return err

	case !shouldHost && doesHost:
		// Don't drop a member below quorum: only stop once the cluster
		// already has at least n_replica active nodes to redistribute to.
		if totalActive < nReplica {
			return nil
		}
		if err := m.stopLocalReplica(name); err != nil {
			return err
		}
		metric.ReplicaStopsTotal.WithLabelValues(string(name)).Inc()
		data, err := cluster.EncodeReportMemberDown(m.nextRef("balance-down-"+string(name)), name, m.cfg.NodeID)
		if err != nil {
			return err
		}
		_, err = m.cluster.Apply(data, m.cfg.ApplyTimeout)
		return err
	}
	return nil
}

// reportLocalLeaderGauge refreshes raftfleet_raft_is_leader for every
// locally-run replica.
func (m *Manager) reportLocalLeaderGauge() {
	m.mu.Lock()
	replicas := make(map[domain.GroupName]bool, len(m.replicas))
	for name, n := range m.replicas {
		replicas[name] = n.IsLeader()
	}
	m.mu.Unlock()

	for name, isLeader := range replicas {
		v := 0.0
		if isLeader {
			v = 1
		}
		metric.RaftIsLeader.WithLabelValues(string(name)).Set(v)
	}
}

// expireTombstones drops RecentlyRemoved entries that have outlived
// cluster.DefaultTombstoneTTL, per §4.3's expire_tombstones command. Only
// the cluster-group leader proposes it, the same restriction §4.7 applies
// to purge_node.
func (m *Manager) expireTombstones() {
	if !m.cluster.IsLeader() {
		return
	}
	data, err := cluster.EncodeExpireTombstones(m.nextRef("expire-tombstones"), time.Now())
	if err != nil {
		m.logger.Error("encode expire_tombstones failed", "error", err)
		return
	}
	if _, err := m.cluster.Apply(data, m.cfg.ApplyTimeout); err != nil {
		m.logger.Error("expire_tombstones failed", "error", err)
	}
}

// requestJoin asks the group's current leader to add this node's
// freshly-started replica as a voter, per the bootstrap-or-join contract a
// replica added outside the initial bootstrap must satisfy. If no leader
// hint is known yet, the next balancing tick retries.
func (m *Manager) requestJoin(ctx context.Context, name domain.GroupName) {
	leaderNode, ok := m.state.LeaderHint(name)
	if !ok || leaderNode == m.cfg.NodeID {
		return
	}
	addr := ""
	if m.cfg.BindAddr != nil {
		addr = m.cfg.BindAddr(name)
	}
	if err := m.joiner.RequestJoin(ctx, leaderNode, name, m.cfg.NodeID, addr); err != nil {
		m.logger.Warn("join group failed", "group", name, "error", err)
	}
}

func containsNode(nodes []domain.NodeID, target domain.NodeID) bool {
	for _, n := range nodes {
		if n == target {
			return true
		}
	}
	return false
}
