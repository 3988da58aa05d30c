// Package engine wraps hashicorp/raft behind the black-box contract
// assumed in §6.3: start/stop a replica, apply a command,
// perform a linearizable read, report status. Both the cluster group and
// every user-defined consensus group run as one Node each, distinguished
// only by which raft.FSM they're constructed with.
package engine

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Role mirrors raft.RaftState without leaking the hashicorp type to callers.
type Role string

const (
	RoleFollower  Role = "follower"
	RoleCandidate Role = "candidate"
	RoleLeader    Role = "leader"
	RoleShutdown  Role = "shutdown"
)

// Status reports the engine's current standing, per §6.3.
type Status struct {
	Role        Role
	LastApplied uint64
	LeaderAddr  string
	LeaderID    string
}

// Config configures a Node.
type Config struct {
	// GroupName identifies the consensus group this node replicates (the
	// cluster group uses a fixed reserved name).
	GroupName string

	// LocalID is this node's Raft server ID (NodeId).
	LocalID string

	// BindAddr is the local TCP address Raft listens on for this group.
	BindAddr string

	// DataDir is where the log store, stable store, and snapshots for this
	// replica live. Empty means transient in-memory stores (used for
	// short-lived or test replicas; nothing persists across restarts).
	DataDir string

	// Bootstrap, if true, forms a brand-new single-node cluster out of this
	// replica. Joining an existing cluster instead happens via AddVoter on
	// the leader.
	Bootstrap bool

	// HeartbeatTimeout/ElectionTimeout tune responsiveness; zero uses
	// raft.DefaultConfig's values.
	HeartbeatTimeout time.Duration
	ElectionTimeout  time.Duration

	Logger *slog.Logger
}

// Node is a running Raft replica for one consensus group.
type Node struct {
	raft      *raft.Raft
	transport *raft.NetworkTransport
	logger    *slog.Logger

	logStore      raft.LogStore
	stableStore   raft.StableStore
	snapshotStore raft.SnapshotStore

	leaderCh chan bool
}

// New starts a Raft replica backed by fsm. fsm must be deterministic: the
// same sequence of Apply calls must produce the same state on every replica.
func New(cfg Config, fsm raft.FSM) (*Node, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LocalID == "" {
		return nil, fmt.Errorf("engine: local id is required")
	}

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(cfg.LocalID)
	raftConfig.Logger = &hclogAdapter{logger: cfg.Logger.With("group", cfg.GroupName)}
	if cfg.HeartbeatTimeout > 0 {
		raftConfig.HeartbeatTimeout = cfg.HeartbeatTimeout
	}
	if cfg.ElectionTimeout > 0 {
		raftConfig.ElectionTimeout = cfg.ElectionTimeout
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve bind addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, io.Discard)
	if err != nil {
		return nil, fmt.Errorf("engine: create transport: %w", err)
	}

	logStore, stableStore, snapshotStore, err := openStores(cfg.DataDir)
	if err != nil {
		transport.Close()
		return nil, err
	}

	leaderCh := make(chan bool, 10)
	raftConfig.NotifyCh = leaderCh

	r, err := raft.NewRaft(raftConfig, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		closeStores(logStore, stableStore)
		transport.Close()
		return nil, fmt.Errorf("engine: create raft: %w", err)
	}

	n := &Node{
		raft:          r,
		transport:     transport,
		logger:        cfg.Logger,
		logStore:      logStore,
		stableStore:   stableStore,
		snapshotStore: snapshotStore,
		leaderCh:      leaderCh,
	}

	if cfg.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{{ID: raft.ServerID(cfg.LocalID), Address: transport.LocalAddr()}},
		}
		if err := r.BootstrapCluster(configuration).Error(); err != nil {
			n.Close()
			return nil, fmt.Errorf("engine: bootstrap: %w", err)
		}
	}

	return n, nil
}

// openStores returns in-memory stores when dataDir is empty, or BoltDB-backed
// durable stores when it is set.
func openStores(dataDir string) (raft.LogStore, raft.StableStore, raft.SnapshotStore, error) {
	if dataDir == "" {
		return raft.NewInmemStore(), raft.NewInmemStore(), raft.NewInmemSnapshotStore(), nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("engine: create data dir: %w", err)
	}
	logStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-log.db"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("engine: create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-stable.db"))
	if err != nil {
		logStore.Close()
		return nil, nil, nil, fmt.Errorf("engine: create stable store: %w", err)
	}
	snapshotStore, err := raft.NewFileSnapshotStore(dataDir, 3, io.Discard)
	if err != nil {
		stableStore.Close()
		logStore.Close()
		return nil, nil, nil, fmt.Errorf("engine: create snapshot store: %w", err)
	}
	return logStore, stableStore, snapshotStore, nil
}

func closeStores(logStore raft.LogStore, stableStore raft.StableStore) {
	if s, ok := stableStore.(*raftboltdb.BoltStore); ok {
		s.Close()
	}
	if s, ok := logStore.(*raftboltdb.BoltStore); ok {
		s.Close()
	}
}

// Apply submits a command, blocking until it is committed (or times out).
// The second return value is whatever the FSM's Apply returned for this
// entry — callers use it to surface business-rule errors (already_added,
// not_found, ...) without treating them as transport failures.
func (n *Node) Apply(data []byte, timeout time.Duration) (any, error) {
	f := n.raft.Apply(data, timeout)
	if err := f.Error(); err != nil {
		return nil, fmt.Errorf("engine: apply: %w", err)
	}
	return f.Response(), nil
}

// Barrier blocks until all prior operations have been applied locally,
// giving a leader-local read linearizability with respect to already
// committed writes (used to serve §4.3 queries).
func (n *Node) Barrier(timeout time.Duration) error {
	return n.raft.Barrier(timeout).Error()
}

func (n *Node) IsLeader() bool { return n.raft.State() == raft.Leader }

func (n *Node) Status() Status {
	addr, id := n.raft.LeaderWithID()
	var role Role
	switch n.raft.State() {
	case raft.Leader:
		role = RoleLeader
	case raft.Candidate:
		role = RoleCandidate
	case raft.Shutdown:
		role = RoleShutdown
	default:
		role = RoleFollower
	}
	return Status{
		Role:        role,
		LastApplied: n.raft.AppliedIndex(),
		LeaderAddr:  string(addr),
		LeaderID:    string(id),
	}
}

func (n *Node) AddVoter(id, addr string, timeout time.Duration) error {
	return n.raft.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, timeout).Error()
}

func (n *Node) RemoveServer(id string, timeout time.Duration) error {
	return n.raft.RemoveServer(raft.ServerID(id), 0, timeout).Error()
}

func (n *Node) Snapshot() error {
	return n.raft.Snapshot().Error()
}

// LeaderCh notifies on every leadership transition of this node (true when
// becoming leader, false when stepping down).
func (n *Node) LeaderCh() <-chan bool { return n.leaderCh }

func (n *Node) Stats() map[string]string { return n.raft.Stats() }

// Close shuts the replica down, flushing pending writes.
func (n *Node) Close() error {
	if err := n.raft.Shutdown().Error(); err != nil {
		n.logger.Error("raft shutdown failed", "error", err)
	}
	closeStores(n.logStore, n.stableStore)
	if err := n.transport.Close(); err != nil {
		n.logger.Error("close transport failed", "error", err)
	}
	return nil
}

// hclogAdapter lets hashicorp/raft log through the fleet's slog.Logger.
type hclogAdapter struct {
	logger *slog.Logger
}

func (l *hclogAdapter) Log(level hclog.Level, msg string, args ...any) {
	switch level {
	case hclog.Trace, hclog.Debug:
		l.logger.Debug(msg, args...)
	case hclog.Warn:
		l.logger.Warn(msg, args...)
	case hclog.Error:
		l.logger.Error(msg, args...)
	default:
		l.logger.Info(msg, args...)
	}
}

func (l *hclogAdapter) Trace(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hclogAdapter) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hclogAdapter) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *hclogAdapter) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *hclogAdapter) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *hclogAdapter) IsTrace() bool { return false }
func (l *hclogAdapter) IsDebug() bool { return false }
func (l *hclogAdapter) IsInfo() bool  { return true }
func (l *hclogAdapter) IsWarn() bool  { return true }
func (l *hclogAdapter) IsError() bool { return true }

func (l *hclogAdapter) ImpliedArgs() []any               { return nil }
func (l *hclogAdapter) With(args ...any) hclog.Logger    { return l }
func (l *hclogAdapter) Name() string                     { return "raft" }
func (l *hclogAdapter) Named(name string) hclog.Logger   { return l }
func (l *hclogAdapter) ResetNamed(_ string) hclog.Logger  { return l }
func (l *hclogAdapter) SetLevel(_ hclog.Level)            {}
func (l *hclogAdapter) GetLevel() hclog.Level             { return hclog.Info }
func (l *hclogAdapter) StandardLogger(_ *hclog.StandardLoggerOptions) *log.Logger { return nil }
func (l *hclogAdapter) StandardWriter(_ *hclog.StandardLoggerOptions) io.Writer   { return nil }
