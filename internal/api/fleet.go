// Package api implements the public surface every cmd/* binary talks to
// (§6.1): Fleet wires together a node's Manager, ClusterState, and leader
// Resolver into the activate/deactivate/command/query operations a client
// actually calls.
package api

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/raftfleet/raftfleet/internal/cluster"
	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/leader"
	"github.com/raftfleet/raftfleet/internal/manager"
)

// ClusterReader is the subset of ClusterState Fleet reads directly for
// active_nodes()/consensus_groups()/whereis_leader(). *cluster.FSM
// satisfies this directly.
type ClusterReader interface {
	ActiveNodes() map[domain.ZoneID][]domain.NodeID
	ConsensusGroups() map[domain.GroupName]int
	LeaderHint(name domain.GroupName) (domain.NodeID, bool)
}

// GroupManager is the subset of Manager Fleet drives for
// activate/deactivate/add/remove_consensus_group.
type GroupManager interface {
	Activate(ctx context.Context, ref string) error
	Deactivate(ctx context.Context, ref string) error
	AddGroup(ctx context.Context, ref string, name domain.GroupName, nReplica int, rvConfig domain.RVConfig) error
	RemoveGroup(ctx context.Context, ref string, name domain.GroupName) error
}

// Dispatcher runs a command or query against a group's current leader,
// per §4.5's call_with_retry protocol. *leader.Resolver satisfies this
// directly.
type Dispatcher interface {
	Dispatch(ctx context.Context, name domain.GroupName, op leader.Operation, cfg leader.Config) (any, error)
}

// Config configures a Fleet instance.
type Config struct {
	// DefaultDispatch supplies the timeout/retry/retry_interval defaults
	// applied when a caller of command()/query() doesn't override them.
	DefaultDispatch leader.Config
}

func (c *Config) setDefaults() {
	if c.DefaultDispatch == (leader.Config{}) {
		c.DefaultDispatch = leader.DefaultConfig()
	}
}

// Fleet is the facade §6.1 names the Public API surface: every operation
// a client binary (raftfleetctl, an embedding service) calls goes through
// here.
type Fleet struct {
	cfg      Config
	mgr      GroupManager
	state    ClusterReader
	dispatch Dispatcher
	entropy  *ulid.MonotonicEntropy
}

// New constructs a Fleet over the given per-node Manager, ClusterState
// reader, and leader Resolver.
func New(cfg Config, mgr GroupManager, state ClusterReader, dispatch Dispatcher) *Fleet {
	cfg.setDefaults()
	return &Fleet{
		cfg:      cfg,
		mgr:      mgr,
		state:    state,
		dispatch: dispatch,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// newRef generates a fresh idempotency reference for a caller that didn't
// supply one. ULIDs are lexicographically sortable and collision-resistant
// without coordination, which is all a client-originated retry key needs.
func (f *Fleet) newRef() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), f.entropy)
	if err != nil {
		// Monotonic entropy only errs on overflow within the same
		// millisecond after 2^80 calls; fall back to a fresh source.
		id, _ = ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	}
	return id.String()
}

// Activate runs activate for this node (§4.6.1, §6.1). The zone argument
// is not used: the node joins the zone its Manager was configured with
// (manager.Config.Zone).
func (f *Fleet) Activate(ctx context.Context, zone domain.ZoneID, ref string) error {
	if ref == "" {
		ref = f.newRef()
	}
	return f.mgr.Activate(ctx, ref)
}

// Deactivate runs deactivate() (§6.1).
func (f *Fleet) Deactivate(ctx context.Context, ref string) error {
	if ref == "" {
		ref = f.newRef()
	}
	return f.mgr.Deactivate(ctx, ref)
}

// ActiveNodes runs active_nodes() (§6.1): the zone-to-members view of
// ClusterState.
func (f *Fleet) ActiveNodes() map[domain.ZoneID][]domain.NodeID {
	return f.state.ActiveNodes()
}

// ConsensusGroups runs consensus_groups() (§6.1): every registered group
// and its configured replica count.
func (f *Fleet) ConsensusGroups() map[domain.GroupName]int {
	return f.state.ConsensusGroups()
}

// AddConsensusGroupRequest carries add_consensus_group's inputs (§6.1).
type AddConsensusGroupRequest struct {
	Name     domain.GroupName
	NReplica int
	RVConfig domain.RVConfig
	Ref      string // idempotency reference; generated if empty
}

// AddConsensusGroup runs add_consensus_group(name, n_replica, rv_config)
// (§4.6.3, §6.1). Returns domain.ErrAlreadyAdded if name already exists.
func (f *Fleet) AddConsensusGroup(ctx context.Context, req AddConsensusGroupRequest) error {
	ref := req.Ref
	if ref == "" {
		ref = f.newRef()
	}
	return f.mgr.AddGroup(ctx, ref, req.Name, req.NReplica, req.RVConfig)
}

// RemoveConsensusGroup runs remove_consensus_group(name) (§6.1). Returns
// domain.ErrNotFound if name doesn't exist.
func (f *Fleet) RemoveConsensusGroup(ctx context.Context, name domain.GroupName, ref string) error {
	if ref == "" {
		ref = f.newRef()
	}
	return f.mgr.RemoveGroup(ctx, ref, name)
}

// CallOptions overrides command()/query()'s per-call tuning (§6.1); a
// zero value uses Fleet's configured defaults.
type CallOptions struct {
	Timeout       time.Duration
	Retry         int
	RetryInterval time.Duration
	Ref           string // idempotency reference for Command; ignored by Query
}

func (f *Fleet) dispatchConfig(opts CallOptions) leader.Config {
	cfg := f.cfg.DefaultDispatch
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.Retry > 0 {
		cfg.Retry = opts.Retry
	}
	if opts.RetryInterval > 0 {
		cfg.RetryInterval = opts.RetryInterval
	}
	return cfg
}

// Command runs command(name, arg, ...) (§6.1): a mutating operation
// dispatched to name's current leader, retried per cfg until the leader
// resolves or the retry budget is spent (domain.ErrNoLeader).
func (f *Fleet) Command(ctx context.Context, name domain.GroupName, arg []byte, opts CallOptions) (any, error) {
	ref := opts.Ref
	if ref == "" {
		ref = f.newRef()
	}
	op := leader.Operation{Name: name, Kind: leader.OpCommand, Ref: ref, Arg: arg}
	return f.dispatch.Dispatch(ctx, name, op, f.dispatchConfig(opts))
}

// Query runs query(name, arg, ...) (§6.1): a read-only counterpart to
// Command, requiring no idempotency reference.
func (f *Fleet) Query(ctx context.Context, name domain.GroupName, arg []byte, opts CallOptions) (any, error) {
	op := leader.Operation{Name: name, Kind: leader.OpQuery, Arg: arg}
	return f.dispatch.Dispatch(ctx, name, op, f.dispatchConfig(opts))
}

// WhereIsLeader runs whereis_leader(name) (§6.1): ClusterState's last
// reported leader hint for name, which may be stale relative to an
// in-flight election.
func (f *Fleet) WhereIsLeader(name domain.GroupName) (domain.NodeID, bool) {
	return f.state.LeaderHint(name)
}

var (
	_ ClusterReader = (*cluster.FSM)(nil)
	_ GroupManager  = (*manager.Manager)(nil)
	_ Dispatcher    = (*leader.Resolver)(nil)
)
