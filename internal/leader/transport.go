package leader

import (
	"context"

	"github.com/raftfleet/raftfleet/internal/core/domain"
)

// OperationKind distinguishes a mutating command from a read-only query;
// both travel the same dispatch path (§4.5).
type OperationKind uint8

const (
	OpCommand OperationKind = iota + 1
	OpQuery
)

// Operation is a request to run against the named group's current leader.
type Operation struct {
	Name domain.GroupName
	Kind OperationKind
	Ref  string // idempotency reference, required for OpCommand (§5)
	Arg  []byte
}

// Transport is the RPC boundary the resolver dispatches through.
// Implementations (internal/rpcfleet) convert connection/timeout/remote
// faults into a non-nil error here; the resolver treats any error as a
// transport fault and evicts the cache entry before retrying (§4.5, §7).
type Transport interface {
	// Dispatch sends op to the replica at ref and returns its application
	// result, or an error if the RPC itself failed.
	Dispatch(ctx context.Context, ref domain.ReplicaRef, op Operation) (any, error)

	// WhoIsLeader asks node's local process what it believes the leader of
	// name is. found is false if node has no opinion (§4.5.1).
	WhoIsLeader(ctx context.Context, node domain.NodeID, name domain.GroupName) (ref domain.ReplicaRef, found bool, err error)
}

// ClusterQuerier is the subset of ClusterState the resolver needs for
// discovery. *cluster.FSM satisfies this directly.
type ClusterQuerier interface {
	LeaderHint(name domain.GroupName) (domain.NodeID, bool)
	ActiveNodes() map[domain.ZoneID][]domain.NodeID
}
