// Package manager implements the per-node coordinator of §4.6: it tracks
// this node's activation, runs the periodic balancing loop that starts and
// stops local replicas to match ClusterState's desired placement, and
// handles bootstrap delegation for newly added groups.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/raft"

	"github.com/raftfleet/raftfleet/internal/cluster"
	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/engine"
	"github.com/raftfleet/raftfleet/internal/groupfsm"
)

// ClusterGroup is the subset of the cluster group's Raft engine the
// Manager submits commands through. *engine.Node satisfies this directly.
type ClusterGroup interface {
	Apply(data []byte, timeout time.Duration) (any, error)
	IsLeader() bool
}

// ClusterQueries is the subset of ClusterState the Manager reads to
// reconcile local placement. *cluster.FSM satisfies this directly.
type ClusterQueries interface {
	ActiveNodes() map[domain.ZoneID][]domain.NodeID
	ConsensusGroups() map[domain.GroupName]int
	GroupMembers(name domain.GroupName) ([]domain.NodeID, bool)
	DesiredPlacement(name domain.GroupName) ([]domain.NodeID, bool)
	LeaderHint(name domain.GroupName) (domain.NodeID, bool)
}

// DelegateResult reports how bootstrap delegation of a new group resolved.
type DelegateResult int

const (
	DelegateLeaderStarted DelegateResult = iota + 1
	DelegateLeaderDelegatedTo
	DelegateProcessExists
)

// BootstrapDelegate carries the "await_completion_of_adding_consensus_group"
// RPC of §4.6.3 to a remote node. internal/rpcfleet implements this over
// the wire; LocalOnlyDelegate implements it for a single-node deployment.
type BootstrapDelegate interface {
	DelegateBootstrap(ctx context.Context, node domain.NodeID, name domain.GroupName, nReplica int, rvConfig domain.RVConfig) (DelegateResult, error)
}

// GroupJoiner asks a group's current leader to add a newly-started replica
// as a Raft voter, completing the steady-state half of bootstrap-or-join
// (§4.6.2): a group's first replica forms via BootstrapDelegate, every
// replica rebalancing adds afterward joins via this instead.
// internal/rpcfleet implements this over the wire; a nil joiner falls back
// to local-only joining for single-node deployments.
type GroupJoiner interface {
	RequestJoin(ctx context.Context, leader domain.NodeID, name domain.GroupName, newNode domain.NodeID, newNodeAddr string) error
}

// PersistenceChecker answers whether a group previously existed on this
// node under the configured persistence directory (§4.6.3, §9 open
// question on persistence_dir_parent). A nil checker means "never existed
// anywhere," the conservative default for nodes without local persistence.
type PersistenceChecker interface {
	Exists(group domain.GroupName, node domain.NodeID) bool
}

// Config configures a Manager instance.
type Config struct {
	NodeID domain.NodeID
	Zone   domain.ZoneID

	BalancingInterval time.Duration

	// BindAddr returns the local TCP address a replica of this group should
	// listen on. Deployments typically derive a deterministic port per group.
	BindAddr func(group domain.GroupName) string

	// DataDir returns the local persistence directory for a group, or ""
	// for a transient in-memory replica. Matches persistence_dir_parent/G
	// from §6.2 when set.
	DataDir func(group domain.GroupName) string

	// ApplyTimeout bounds cluster-group command submissions.
	ApplyTimeout time.Duration

	// BalancingConcurrency bounds how many groups are reconciled
	// concurrently per tick (§9's supervision notes: isolate failures,
	// don't serialize unrelated groups behind one slow start/stop).
	BalancingConcurrency int

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.BalancingInterval <= 0 {
		c.BalancingInterval = 60 * time.Second
	}
	if c.ApplyTimeout <= 0 {
		c.ApplyTimeout = 500 * time.Millisecond
	}
	if c.BalancingConcurrency <= 0 {
		c.BalancingConcurrency = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the set of Raft replicas this node actually runs, and keeps
// it converged on ClusterState's desired placement.
type Manager struct {
	cfg      Config
	cluster  ClusterGroup
	state    ClusterQueries
	persist  PersistenceChecker
	delegate BootstrapDelegate
	joiner   GroupJoiner
	logger   *slog.Logger

	startEngine func(cfg engine.Config, fsm raft.FSM) (*engine.Node, error)

	mu       sync.Mutex
	active   bool
	replicas map[domain.GroupName]*engine.Node
	fsms     map[domain.GroupName]*groupfsm.Opaque
	watchers map[domain.GroupName]chan struct{}
	refSeq   uint64
}

// nextRef generates a fresh idempotency reference for an internally
// originated command (balancing decisions, compensating rollbacks). Unlike
// caller-supplied refs on the public API, these must be unique per actual
// decision, not per call site, or the FSM's retry cache would silently
// replay a stale result on every subsequent tick.
func (m *Manager) nextRef(tag string) string {
	m.mu.Lock()
	m.refSeq++
	seq := m.refSeq
	m.mu.Unlock()
	return fmt.Sprintf("%s-%s-%d", m.cfg.NodeID, tag, seq)
}

// New constructs a Manager. persist, delegate, and joiner may be nil: a nil
// delegate falls back to always bootstrapping locally, a nil joiner falls
// back to joining only when this node is itself the group's leader.
func New(cfg Config, cluster ClusterGroup, state ClusterQueries, persist PersistenceChecker, delegate BootstrapDelegate, joiner ...GroupJoiner) *Manager {
	cfg.setDefaults()
	m := &Manager{
		cfg:      cfg,
		cluster:  cluster,
		state:    state,
		persist:  persist,
		delegate: delegate,
		logger:   cfg.Logger,
		replicas: make(map[domain.GroupName]*engine.Node),
		fsms:     make(map[domain.GroupName]*groupfsm.Opaque),
		watchers: make(map[domain.GroupName]chan struct{}),
	}
	m.startEngine = engine.New
	if m.delegate == nil {
		m.delegate = localOnlyDelegate{m: m}
	}
	if len(joiner) > 0 && joiner[0] != nil {
		m.joiner = joiner[0]
	} else {
		m.joiner = localOnlyJoiner{m: m}
	}
	return m
}

// Activate sends the activate command for this node's configured zone
// (§4.6.1). Returns domain.ErrNotInactive if already active.
func (m *Manager) Activate(ctx context.Context, ref string) error {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return domain.ErrNotInactive
	}
	m.mu.Unlock()

	data, err := cluster.EncodeActivate(ref, m.cfg.NodeID, m.cfg.Zone)
	if err != nil {
		return err
	}
	if _, err := m.cluster.Apply(data, m.cfg.ApplyTimeout); err != nil {
		return err
	}

	m.mu.Lock()
	m.active = true
	m.mu.Unlock()
	return nil
}

// Deactivate sends the deactivate command (§4.6.1). Local replicas are
// left running; the next balancing tick reconciles them away since this
// node will no longer appear in desired placement.
func (m *Manager) Deactivate(ctx context.Context, ref string) error {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return domain.ErrInactive
	}
	m.mu.Unlock()

	data, err := cluster.EncodeDeactivate(ref, m.cfg.NodeID)
	if err != nil {
		return err
	}
	if _, err := m.cluster.Apply(data, m.cfg.ApplyTimeout); err != nil {
		return err
	}

	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
	return nil
}

// IsActive reports this node's last-known activation state.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LocalGroups returns the groups this node currently runs a replica for.
func (m *Manager) LocalGroups() []domain.GroupName {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GroupName, 0, len(m.replicas))
	for name := range m.replicas {
		out = append(out, name)
	}
	return out
}

// LocalStatus reports the Raft status of a locally-run replica, for
// internal/rpcfleet's WhoIsLeader handler. ok is false if this node runs no
// replica of name.
func (m *Manager) LocalStatus(name domain.GroupName) (engine.Status, bool) {
	m.mu.Lock()
	n, exists := m.replicas[name]
	m.mu.Unlock()
	if !exists {
		return engine.Status{}, false
	}
	return n.Status(), true
}

// LocalCommand applies arg as a command against the named local replica,
// per §5/§6.1's command() semantics (the replicated value is opaque; arg
// becomes the new value). ok is false if this node runs no replica of name.
func (m *Manager) LocalCommand(name domain.GroupName, arg []byte, timeout time.Duration) (any, bool, error) {
	m.mu.Lock()
	n, exists := m.replicas[name]
	m.mu.Unlock()
	if !exists {
		return nil, false, nil
	}
	ret, err := n.Apply(arg, timeout)
	return ret, true, err
}

// LocalQuery serves a read-only query against the named local replica: a
// Barrier gives linearizability with respect to already-committed writes,
// then the opaque value is returned as-is. ok is false if this node runs no
// replica of name.
func (m *Manager) LocalQuery(name domain.GroupName, timeout time.Duration) ([]byte, bool, error) {
	m.mu.Lock()
	n, nExists := m.replicas[name]
	fsm, fExists := m.fsms[name]
	m.mu.Unlock()
	if !nExists || !fExists {
		return nil, false, nil
	}
	if err := n.Barrier(timeout); err != nil {
		return nil, true, err
	}
	return fsm.Value(), true, nil
}

// Close stops every locally-run replica, for graceful shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for name, n := range m.replicas {
		if stop, ok := m.watchers[name]; ok {
			close(stop)
			delete(m.watchers, name)
		}
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close replica %s: %w", name, err)
		}
		delete(m.replicas, name)
	}
	return firstErr
}

func (m *Manager) startLocalReplica(name domain.GroupName, bootstrap bool) (*engine.Node, error) {
	m.mu.Lock()
	if _, exists := m.replicas[name]; exists {
		m.mu.Unlock()
		return nil, domain.ErrProcessExists
	}
	m.mu.Unlock()

	cfg := engine.Config{
		GroupName: string(name),
		LocalID:   string(m.cfg.NodeID),
		Bootstrap: bootstrap,
		Logger:    m.logger,
	}
	if m.cfg.BindAddr != nil {
		cfg.BindAddr = m.cfg.BindAddr(name)
	}
	if m.cfg.DataDir != nil {
		cfg.DataDir = m.cfg.DataDir(name)
	}

	fsm := groupfsm.New()
	n, err := m.startEngine(cfg, fsm)
	if err != nil {
		return nil, fmt.Errorf("manager: start replica %s: %w", name, err)
	}

	stop := make(chan struct{})
	m.mu.Lock()
	m.replicas[name] = n
	m.fsms[name] = fsm
	m.watchers[name] = stop
	m.mu.Unlock()

	go m.watchLeadership(name, n, stop)
	return n, nil
}

func (m *Manager) stopLocalReplica(name domain.GroupName) error {
	m.mu.Lock()
	n, exists := m.replicas[name]
	if !exists {
		m.mu.Unlock()
		return nil
	}
	delete(m.replicas, name)
	delete(m.fsms, name)
	if stop, ok := m.watchers[name]; ok {
		close(stop)
		delete(m.watchers, name)
	}
	m.mu.Unlock()

	return n.Close()
}

// watchLeadership reports every leadership transition of a local replica
// against the cluster group (§4.3's report_leader command), so
// whereis_leader() and LeaderResolver discovery have a current hint to
// find. It exits once stop closes (the replica is being torn down) or the
// replica's own LeaderCh closes (the replica itself shut down).
func (m *Manager) watchLeadership(name domain.GroupName, n *engine.Node, stop <-chan struct{}) {
	for {
		select {
		case isLeader, ok := <-n.LeaderCh():
			if !ok {
				return
			}
			if !isLeader {
				continue
			}
			data, err := cluster.EncodeReportLeader(m.nextRef("leader-"+string(name)), name, m.cfg.NodeID)
			if err != nil {
				m.logger.Error("encode report_leader failed", "group", name, "error", err)
				continue
			}
			if _, err := m.cluster.Apply(data, m.cfg.ApplyTimeout); err != nil {
				m.logger.Warn("report_leader failed", "group", name, "error", err)
			}
		case <-stop:
			return
		}
	}
}

// LocalAddVoter adds newNode as a Raft voter of the local replica of name,
// for internal/rpcfleet's join handler. ok is false if this node runs no
// replica of name; the caller only ever asks this of the node it believes
// leads the group, so a non-leader local replica returns an error rather
// than silently no-opping.
func (m *Manager) LocalAddVoter(name domain.GroupName, newNode domain.NodeID, addr string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	n, exists := m.replicas[name]
	m.mu.Unlock()
	if !exists {
		return false, nil
	}
	if !n.IsLeader() {
		return true, fmt.Errorf("manager: not leader of group %s", name)
	}
	return true, n.AddVoter(string(newNode), addr, timeout)
}

// BootstrapLocal starts the first replica of name on this node, used both
// by localOnlyDelegate and by internal/rpcfleet's remote bootstrap-delegate
// handler when another node's leader delegates to this one.
func (m *Manager) BootstrapLocal(name domain.GroupName) (DelegateResult, error) {
	if _, err := m.startLocalReplica(name, true); err != nil {
		if errors.Is(err, domain.ErrProcessExists) {
			return DelegateProcessExists, nil
		}
		return 0, err
	}
	return DelegateLeaderStarted, nil
}

// localOnlyDelegate bootstraps every new group on whichever node calls it,
// never delegating. It is the default used when no BootstrapDelegate RPC
// client is wired (single-node deployments, tests).
type localOnlyDelegate struct{ m *Manager }

func (d localOnlyDelegate) DelegateBootstrap(_ context.Context, node domain.NodeID, name domain.GroupName, _ int, _ domain.RVConfig) (DelegateResult, error) {
	if node != d.m.cfg.NodeID {
		return 0, fmt.Errorf("manager: no delegate wired to reach node %s", node)
	}
	return d.m.BootstrapLocal(name)
}

// localOnlyJoiner adds a voter directly when this node is itself the
// group's leader, and errors otherwise. It is the default used when no
// GroupJoiner RPC client is wired (single-node deployments, tests).
type localOnlyJoiner struct{ m *Manager }

func (j localOnlyJoiner) RequestJoin(_ context.Context, leaderNode domain.NodeID, name domain.GroupName, newNode domain.NodeID, newNodeAddr string) error {
	if leaderNode != j.m.cfg.NodeID {
		return fmt.Errorf("manager: no joiner wired to reach node %s", leaderNode)
	}
	ok, err := j.m.LocalAddVoter(name, newNode, newNodeAddr, j.m.cfg.ApplyTimeout)
	if !ok {
		return fmt.Errorf("manager: no local replica for group %s", name)
	}
	return err
}
