package purge

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/raft"

	"github.com/raftfleet/raftfleet/internal/cluster"
	"github.com/raftfleet/raftfleet/internal/core/domain"
)

type fakeCluster struct {
	fsm      *cluster.FSM
	isLeader bool
}

func (f *fakeCluster) Apply(data []byte, _ time.Duration) (any, error) {
	return f.fsm.Apply(&raft.Log{Data: data}), nil
}

func (f *fakeCluster) IsLeader() bool { return f.isLeader }

type fakeProber struct {
	reachable map[domain.NodeID]bool
	reconnect map[domain.NodeID]bool
}

func (p *fakeProber) Probe(node domain.NodeID) bool { return p.reachable[node] }

func (p *fakeProber) Reconnect(node domain.NodeID, _ string) error {
	if p.reconnect[node] {
		p.reachable[node] = true
	}
	return nil
}

type fakeHealth struct {
	counts map[domain.NodeID]int
}

func (h *fakeHealth) FailingReplicaCount(node domain.NodeID) int { return h.counts[node] }

func newTestController(t *testing.T, prober LivenessProber, health HealthSource) (*PurgeController, *fakeCluster) {
	t.Helper()
	fsm := cluster.NewFSM(nil)
	fc := &fakeCluster{fsm: fsm, isLeader: true}
	c := New(Config{
		ReconnectInterval:       time.Millisecond,
		FailureTimeWindow:       10 * time.Millisecond,
		ThresholdFailingMembers: 2,
		ApplyTimeout:            time.Second,
	}, fc, fsm, prober, health)
	return c, fc
}

func TestTickRecordsFailureWhenUnreachable(t *testing.T) {
	prober := &fakeProber{reachable: map[domain.NodeID]bool{}}
	c, fc := newTestController(t, prober, nil)

	activate, _ := cluster.EncodeActivate("r1", "A", "z1")
	fc.fsm.Apply(&raft.Log{Data: activate})

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	failures := fc.fsm.NodeFailures()
	if _, ok := failures["A"]; !ok {
		t.Fatalf("expected failure recorded for unreachable node A, got %v", failures)
	}
}

func TestTickClearsFailureWhenHealthyAgain(t *testing.T) {
	prober := &fakeProber{reachable: map[domain.NodeID]bool{"A": true}}
	c, fc := newTestController(t, prober, nil)

	activate, _ := cluster.EncodeActivate("r1", "A", "z1")
	fc.fsm.Apply(&raft.Log{Data: activate})
	fail, _ := cluster.EncodeRecordNodeFailure("r2", "A", 5)
	fc.fsm.Apply(&raft.Log{Data: fail})

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	failures := fc.fsm.NodeFailures()
	if _, ok := failures["A"]; ok {
		t.Fatalf("expected failure cleared for healthy node A, got %v", failures)
	}
}

func TestTickReconnectsBeforeRecordingFailure(t *testing.T) {
	prober := &fakeProber{
		reachable: map[domain.NodeID]bool{"A": false},
		reconnect: map[domain.NodeID]bool{"A": true},
	}
	c, fc := newTestController(t, prober, nil)
	c.cfg.NodeAddr = func(domain.NodeID) string { return "127.0.0.1:1" }

	activate, _ := cluster.EncodeActivate("r1", "A", "z1")
	fc.fsm.Apply(&raft.Log{Data: activate})

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	failures := fc.fsm.NodeFailures()
	if _, ok := failures["A"]; ok {
		t.Fatalf("expected reconnect to restore health and clear failure, got %v", failures)
	}
}

func TestTickPurgesNodeAfterFailureWindowElapses(t *testing.T) {
	prober := &fakeProber{reachable: map[domain.NodeID]bool{}}
	c, fc := newTestController(t, prober, nil)

	activate, _ := cluster.EncodeActivate("r1", "A", "z1")
	fc.fsm.Apply(&raft.Log{Data: activate})
	fail, _ := cluster.EncodeRecordNodeFailure("r2", "A", 5)
	fc.fsm.Apply(&raft.Log{Data: fail})

	time.Sleep(c.cfg.FailureTimeWindow + 5*time.Millisecond)

	// Node stays unreachable this tick too, so the record stands, and
	// since it's now older than FailureTimeWindow, purge fires.
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	nodes := fc.fsm.ActiveNodes()
	if len(nodes["z1"]) != 0 {
		t.Fatalf("expected node A purged from active nodes, got %v", nodes)
	}
}

func TestRunSkipsTickWhenNotLeader(t *testing.T) {
	prober := &fakeProber{reachable: map[domain.NodeID]bool{}}
	c, fc := newTestController(t, prober, nil)
	fc.isLeader = false

	activate, _ := cluster.EncodeActivate("r1", "A", "z1")
	fc.fsm.Apply(&raft.Log{Data: activate})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	if _, ok := fc.fsm.NodeFailures()["A"]; ok {
		t.Fatalf("expected no failure recorded while not leader")
	}
}
