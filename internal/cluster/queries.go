package cluster

import (
	"sort"

	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/placement"
)

// ActiveNodes returns nodes_per_zone (§4.3 query active_nodes).
func (f *FSM) ActiveNodes() map[domain.ZoneID][]domain.NodeID {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[domain.ZoneID][]domain.NodeID, len(f.state.NodesPerZone))
	for z, nodes := range f.state.NodesPerZone {
		list := make([]domain.NodeID, 0, len(nodes))
		for n := range nodes {
			list = append(list, n)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		out[z] = list
	}
	return out
}

// ConsensusGroups returns GroupName -> n_replica (§4.3 query consensus_groups).
func (f *FSM) ConsensusGroups() map[domain.GroupName]int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[domain.GroupName]int, len(f.state.Groups))
	for name, g := range f.state.Groups {
		out[name] = g.NReplica
	}
	return out
}

// DesiredPlacement computes Placement over nodes_per_zone for the named
// group (§4.3 query desired_placement). Returns (nil, false) if the group
// doesn't exist.
func (f *FSM) DesiredPlacement(name domain.GroupName) ([]domain.NodeID, bool) {
	f.mu.RLock()
	g, ok := f.state.Groups[name]
	if !ok {
		f.mu.RUnlock()
		return nil, false
	}
	nodesPerZone := make(map[domain.ZoneID][]domain.NodeID, len(f.state.NodesPerZone))
	for z, nodes := range f.state.NodesPerZone {
		list := make([]domain.NodeID, 0, len(nodes))
		for n := range nodes {
			list = append(list, n)
		}
		nodesPerZone[z] = list
	}
	nReplica := g.NReplica
	f.mu.RUnlock()

	return placement.LRWMembers(nodesPerZone, string(name), nReplica), true
}

// LeaderHint returns the group's last-known leader, if any (§4.3 query
// leader_hint).
func (f *FSM) LeaderHint(name domain.GroupName) (domain.NodeID, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g, ok := f.state.Groups[name]
	if !ok || g.LeaderNode == "" {
		return "", false
	}
	return g.LeaderNode, true
}

// GroupMembers returns the current member set for name, used by Manager to
// diff desired vs actual placement (§4.6.2).
func (f *FSM) GroupMembers(name domain.GroupName) ([]domain.NodeID, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g, ok := f.state.Groups[name]
	if !ok {
		return nil, false
	}
	out := make([]domain.NodeID, 0, len(g.Members))
	for n := range g.Members {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, true
}

// NodeFailures returns a snapshot of node_failures, for the PurgeController.
func (f *FSM) NodeFailures() map[domain.NodeID]NodeFailure {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[domain.NodeID]NodeFailure, len(f.state.NodeFailures))
	for n, rec := range f.state.NodeFailures {
		out[n] = *rec
	}
	return out
}

// GroupExists reports whether name is currently a registered group.
func (f *FSM) GroupExists(name domain.GroupName) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.state.Groups[name]
	return ok
}

// CheckInvariants validates the invariants listed in §8, for tests and
// diagnostics.
func (f *FSM) CheckInvariants() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return checkInvariants(f.state)
}
