package rpcfleet

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/leader"
	"github.com/raftfleet/raftfleet/internal/manager"
)

type fakeReplicas struct {
	status      LocalStatus
	statusOK    bool
	commandRet  []byte
	commandOK   bool
	commandErr  error
	queryRet    []byte
	queryOK     bool
	queryErr    error
	bootstrap   manager.DelegateResult
	bootstrapEr error
	addVoterOK  bool
	addVoterErr error
}

func (f *fakeReplicas) LocalStatus(domain.GroupName) (LocalStatus, bool) { return f.status, f.statusOK }

func (f *fakeReplicas) LocalCommand(domain.GroupName, []byte, time.Duration) (any, bool, error) {
	return f.commandRet, f.commandOK, f.commandErr
}

func (f *fakeReplicas) LocalQuery(domain.GroupName, time.Duration) ([]byte, bool, error) {
	return f.queryRet, f.queryOK, f.queryErr
}

func (f *fakeReplicas) BootstrapLocal(domain.GroupName) (manager.DelegateResult, error) {
	return f.bootstrap, f.bootstrapEr
}

func (f *fakeReplicas) LocalAddVoter(domain.GroupName, domain.NodeID, string, time.Duration) (bool, error) {
	return f.addVoterOK, f.addVoterErr
}

func newTestServer(t *testing.T, fr *fakeReplicas) (*httptest.Server, *Client) {
	t.Helper()
	s := newWithReplicas(Config{
		RPCAddr: func(node domain.NodeID, _ domain.GroupName) string { return "http://" + string(node) },
	}, fr)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	client := NewClient(ts.Client(), func(domain.NodeID) string { return ts.URL })
	return ts, client
}

func TestWhoIsLeaderFound(t *testing.T) {
	fr := &fakeReplicas{status: LocalStatus{IsLeader: false, LeaderID: "B"}, statusOK: true}
	_, client := newTestServer(t, fr)

	ref, found, err := client.WhoIsLeader(context.Background(), "A", "g")
	if err != nil {
		t.Fatalf("who is leader: %v", err)
	}
	if !found || ref.Node != "B" {
		t.Fatalf("expected leader B found, got %v found=%v", ref, found)
	}
}

func TestWhoIsLeaderNotFound(t *testing.T) {
	fr := &fakeReplicas{statusOK: false}
	_, client := newTestServer(t, fr)

	_, found, err := client.WhoIsLeader(context.Background(), "A", "g")
	if err != nil {
		t.Fatalf("who is leader: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}

func TestDispatchCommand(t *testing.T) {
	fr := &fakeReplicas{commandRet: []byte("new-value"), commandOK: true}
	ts, client := newTestServer(t, fr)

	ret, err := client.Dispatch(context.Background(), domain.ReplicaRef{Addr: ts.URL}, leader.Operation{
		Name: "g", Kind: leader.OpCommand, Ref: "r1", Arg: []byte("x"),
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if string(ret.([]byte)) != "new-value" {
		t.Fatalf("expected dispatched result, got %v", ret)
	}
}

func TestDispatchNotFoundWhenNoLocalReplica(t *testing.T) {
	fr := &fakeReplicas{commandOK: false}
	ts, client := newTestServer(t, fr)

	_, err := client.Dispatch(context.Background(), domain.ReplicaRef{Addr: ts.URL}, leader.Operation{
		Name: "g", Kind: leader.OpCommand, Ref: "r1", Arg: []byte("x"),
	})
	if err == nil {
		t.Fatalf("expected error when no local replica exists")
	}
}

func TestBootstrapDelegate(t *testing.T) {
	fr := &fakeReplicas{bootstrap: manager.DelegateLeaderStarted}
	_, client := newTestServer(t, fr)

	result, err := client.DelegateBootstrap(context.Background(), "A", "g", 3, nil)
	if err != nil {
		t.Fatalf("delegate bootstrap: %v", err)
	}
	if result != manager.DelegateLeaderStarted {
		t.Fatalf("expected leader started, got %v", result)
	}
}

func TestBootstrapDelegateProcessExists(t *testing.T) {
	fr := &fakeReplicas{bootstrap: manager.DelegateProcessExists}
	_, client := newTestServer(t, fr)

	result, err := client.DelegateBootstrap(context.Background(), "A", "g", 3, nil)
	if err != nil {
		t.Fatalf("delegate bootstrap: %v", err)
	}
	if result != manager.DelegateProcessExists {
		t.Fatalf("expected process exists, got %v", result)
	}
}
