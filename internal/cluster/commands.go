package cluster

import (
	"encoding/json"
	"time"

	"github.com/raftfleet/raftfleet/internal/core/domain"
)

// CommandType identifies which mutation a LogEntry carries.
type CommandType uint8

const (
	CmdActivate CommandType = iota + 1
	CmdDeactivate
	CmdAddGroup
	CmdRemoveGroup
	CmdReportMemberUp
	CmdReportMemberDown
	CmdReportLeader
	CmdRecordNodeFailure
	CmdPurgeNode
	CmdExpireTombstones
)

// LogEntry is the Raft log payload: a command plus the caller-provided
// idempotency reference required by §5 (a retried command with the same
// Ref must not double-apply).
type LogEntry struct {
	Type    CommandType     `json:"type"`
	Ref     string          `json:"ref"`
	Payload json.RawMessage `json:"payload"`
}

type ActivatePayload struct {
	Node domain.NodeID `json:"node"`
	Zone domain.ZoneID `json:"zone"`
}

type DeactivatePayload struct {
	Node domain.NodeID `json:"node"`
}

type AddGroupPayload struct {
	Name       domain.GroupName `json:"name"`
	NReplica   int              `json:"n_replica"`
	RVConfig   domain.RVConfig  `json:"rv_config"`
	LeaderHint domain.NodeID    `json:"leader_hint"`
}

type RemoveGroupPayload struct {
	Name domain.GroupName `json:"name"`
}

type ReportMemberUpPayload struct {
	Name domain.GroupName `json:"name"`
	Node domain.NodeID    `json:"node"`
}

type ReportMemberDownPayload struct {
	Name domain.GroupName `json:"name"`
	Node domain.NodeID    `json:"node"`
}

type ReportLeaderPayload struct {
	Name domain.GroupName `json:"name"`
	Node domain.NodeID    `json:"node"`
}

type RecordNodeFailurePayload struct {
	Node         domain.NodeID `json:"node"`
	FailingCount int           `json:"failing_count"`
}

type PurgeNodePayload struct {
	Node domain.NodeID `json:"node"`
}

type ExpireTombstonesPayload struct {
	Now time.Time `json:"now"`
}

func encode(t CommandType, ref string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(LogEntry{Type: t, Ref: ref, Payload: raw})
}

// EncodeActivate etc. build the Raft log bytes for each command. Managers
// and the public API call these before Node.Apply.

func EncodeActivate(ref string, node domain.NodeID, zone domain.ZoneID) ([]byte, error) {
	return encode(CmdActivate, ref, ActivatePayload{Node: node, Zone: zone})
}

func EncodeDeactivate(ref string, node domain.NodeID) ([]byte, error) {
	return encode(CmdDeactivate, ref, DeactivatePayload{Node: node})
}

func EncodeAddGroup(ref string, name domain.GroupName, nReplica int, cfg domain.RVConfig, leaderHint domain.NodeID) ([]byte, error) {
	return encode(CmdAddGroup, ref, AddGroupPayload{Name: name, NReplica: nReplica, RVConfig: cfg, LeaderHint: leaderHint})
}

func EncodeRemoveGroup(ref string, name domain.GroupName) ([]byte, error) {
	return encode(CmdRemoveGroup, ref, RemoveGroupPayload{Name: name})
}

func EncodeReportMemberUp(ref string, name domain.GroupName, node domain.NodeID) ([]byte, error) {
	return encode(CmdReportMemberUp, ref, ReportMemberUpPayload{Name: name, Node: node})
}

func EncodeReportMemberDown(ref string, name domain.GroupName, node domain.NodeID) ([]byte, error) {
	return encode(CmdReportMemberDown, ref, ReportMemberDownPayload{Name: name, Node: node})
}

func EncodeReportLeader(ref string, name domain.GroupName, node domain.NodeID) ([]byte, error) {
	return encode(CmdReportLeader, ref, ReportLeaderPayload{Name: name, Node: node})
}

func EncodeRecordNodeFailure(ref string, node domain.NodeID, failingCount int) ([]byte, error) {
	return encode(CmdRecordNodeFailure, ref, RecordNodeFailurePayload{Node: node, FailingCount: failingCount})
}

func EncodePurgeNode(ref string, node domain.NodeID) ([]byte, error) {
	return encode(CmdPurgeNode, ref, PurgeNodePayload{Node: node})
}

func EncodeExpireTombstones(ref string, now time.Time) ([]byte, error) {
	return encode(CmdExpireTombstones, ref, ExpireTombstonesPayload{Now: now})
}

// --- command handlers, each a total function over *State ---

func applyActivate(s *State, p ActivatePayload) error {
	if z, ok := s.zoneOf(p.Node); ok {
		if z == p.Zone {
			return nil // idempotent
		}
		delete(s.NodesPerZone[z], p.Node)
	}
	if s.NodesPerZone[p.Zone] == nil {
		s.NodesPerZone[p.Zone] = make(map[domain.NodeID]struct{})
	}
	s.NodesPerZone[p.Zone][p.Node] = struct{}{}
	return nil
}

func applyDeactivate(s *State, p DeactivatePayload) error {
	if z, ok := s.zoneOf(p.Node); ok {
		delete(s.NodesPerZone[z], p.Node)
	}
	delete(s.NodeFailures, p.Node)
	return nil
}

func applyAddGroup(s *State, p AddGroupPayload) error {
	if _, exists := s.Groups[p.Name]; exists {
		return domain.ErrAlreadyAdded.WithDetails(string(p.Name))
	}
	delete(s.RecentlyRemoved, p.Name) // consume tombstone, if any
	s.Groups[p.Name] = newGroupState(p.NReplica, p.RVConfig, p.LeaderHint)
	return nil
}

func applyRemoveGroup(s *State, p RemoveGroupPayload, now time.Time) error {
	if _, exists := s.Groups[p.Name]; !exists {
		return domain.ErrNotFound.WithDetails(string(p.Name))
	}
	delete(s.Groups, p.Name)
	s.RecentlyRemoved[p.Name] = now
	return nil
}

func applyReportMemberUp(s *State, p ReportMemberUpPayload) error {
	g, ok := s.Groups[p.Name]
	if !ok {
		return nil // ignored silently per §4.3
	}
	if len(g.Members) >= g.NReplica {
		if _, already := g.Members[p.Node]; !already {
			return nil // capped
		}
	}
	g.Members[p.Node] = struct{}{}
	return nil
}

func applyReportMemberDown(s *State, p ReportMemberDownPayload) error {
	g, ok := s.Groups[p.Name]
	if !ok {
		return nil
	}
	delete(g.Members, p.Node)
	if g.LeaderNode == p.Node {
		g.LeaderNode = ""
	}
	return nil
}

func applyReportLeader(s *State, p ReportLeaderPayload) error {
	g, ok := s.Groups[p.Name]
	if !ok {
		return nil
	}
	if _, member := g.Members[p.Node]; !member {
		return nil
	}
	g.LeaderNode = p.Node
	return nil
}

func applyRecordNodeFailure(s *State, p RecordNodeFailurePayload, now time.Time) error {
	if p.FailingCount <= 0 {
		delete(s.NodeFailures, p.Node)
		return nil
	}
	f, exists := s.NodeFailures[p.Node]
	if !exists {
		f = &NodeFailure{FirstFailureAt: now}
		s.NodeFailures[p.Node] = f
	}
	f.FailingGroupCount = p.FailingCount
	return nil
}

func applyPurgeNode(s *State, p PurgeNodePayload) error {
	if z, ok := s.zoneOf(p.Node); ok {
		delete(s.NodesPerZone[z], p.Node)
	}
	for _, g := range s.Groups {
		delete(g.Members, p.Node)
		if g.LeaderNode == p.Node {
			g.LeaderNode = ""
		}
	}
	delete(s.NodeFailures, p.Node)
	return nil
}

func applyExpireTombstones(s *State, p ExpireTombstonesPayload, ttl time.Duration) error {
	for name, removedAt := range s.RecentlyRemoved {
		if p.Now.Sub(removedAt) > ttl {
			delete(s.RecentlyRemoved, name)
		}
	}
	return nil
}
