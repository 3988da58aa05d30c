// Package cluster implements the cluster group: the distinguished Raft
// group whose replicated state is the fleet's node/zone membership and
// per-group placement policy (§4.3).
package cluster

import (
	"time"

	"github.com/raftfleet/raftfleet/internal/core/domain"
)

// GroupName is the reserved name of the cluster group's own Raft instance,
// distinguishing it from every user-defined consensus group it tracks.
// No add_group call may ever target this name (enforced by the Manager,
// which never routes it through cluster.EncodeAddGroup).
const GroupName domain.GroupName = "__cluster__"

// GroupState is the replicated record for one user-defined consensus group.
type GroupState struct {
	NReplica   int                            `json:"n_replica"`
	RVConfig   domain.RVConfig                `json:"rv_config"`
	LeaderNode domain.NodeID                  `json:"leader_node,omitempty"`
	Members    map[domain.NodeID]struct{}     `json:"members"`
}

func newGroupState(nReplica int, cfg domain.RVConfig, leaderHint domain.NodeID) *GroupState {
	return &GroupState{
		NReplica:   nReplica,
		RVConfig:   cfg,
		LeaderNode: leaderHint,
		Members:    make(map[domain.NodeID]struct{}),
	}
}

func (g *GroupState) clone() *GroupState {
	members := make(map[domain.NodeID]struct{}, len(g.Members))
	for n := range g.Members {
		members[n] = struct{}{}
	}
	return &GroupState{NReplica: g.NReplica, RVConfig: g.RVConfig, LeaderNode: g.LeaderNode, Members: members}
}

// NodeFailure tracks a node suspected unhealthy by the PurgeController.
type NodeFailure struct {
	FirstFailureAt    time.Time `json:"first_failure_at"`
	FailingGroupCount int       `json:"failing_group_count"`
}

// State is the full replicated state of the cluster group, per the data
// model in §3. It is only ever mutated through Apply; everything else reads
// a clone.
type State struct {
	NodesPerZone    map[domain.ZoneID]map[domain.NodeID]struct{} `json:"nodes_per_zone"`
	Groups          map[domain.GroupName]*GroupState             `json:"groups"`
	RecentlyRemoved map[domain.GroupName]time.Time               `json:"recently_removed"`
	NodeFailures    map[domain.NodeID]*NodeFailure                `json:"node_failures"`
}

func newState() *State {
	return &State{
		NodesPerZone:    make(map[domain.ZoneID]map[domain.NodeID]struct{}),
		Groups:          make(map[domain.GroupName]*GroupState),
		RecentlyRemoved: make(map[domain.GroupName]time.Time),
		NodeFailures:    make(map[domain.NodeID]*NodeFailure),
	}
}

// clone deep-copies state for safe handoff to readers/snapshots outside the
// FSM's lock.
func (s *State) clone() *State {
	out := newState()
	for z, nodes := range s.NodesPerZone {
		cp := make(map[domain.NodeID]struct{}, len(nodes))
		for n := range nodes {
			cp[n] = struct{}{}
		}
		out.NodesPerZone[z] = cp
	}
	for name, g := range s.Groups {
		out.Groups[name] = g.clone()
	}
	for name, t := range s.RecentlyRemoved {
		out.RecentlyRemoved[name] = t
	}
	for n, f := range s.NodeFailures {
		cp := *f
		out.NodeFailures[n] = &cp
	}
	return out
}

// zoneOf returns the zone currently holding node, if any.
func (s *State) zoneOf(node domain.NodeID) (domain.ZoneID, bool) {
	for z, nodes := range s.NodesPerZone {
		if _, ok := nodes[node]; ok {
			return z, true
		}
	}
	return "", false
}
