package domain

// NodeID identifies a fleet node. It must be stable and comparable across
// nodes: the same NodeID string means the same node everywhere.
type NodeID string

// ZoneID identifies an availability zone declared at node activation.
type ZoneID string

// GroupName identifies a user-defined consensus group.
type GroupName string

// RVConfig is opaque configuration forwarded to the Raft engine when
// starting a replica (election timeout, heartbeat period, snapshot cadence,
// etc). The fleet manager never inspects its contents.
type RVConfig []byte

// ReplicaRef is a handle to a running replica process for a group on a node.
// GroupName+NodeID is the identity; a node runs at most one ReplicaRef per
// group.
type ReplicaRef struct {
	Group GroupName
	Node  NodeID
	// Addr is the endpoint clients/RPCs use to reach this replica directly.
	Addr string
}
