package leader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raftfleet/raftfleet/internal/core/domain"
)

type fakeCluster struct {
	hint       domain.NodeID
	hasHint    bool
	activeZone map[domain.ZoneID][]domain.NodeID
}

func (f *fakeCluster) LeaderHint(domain.GroupName) (domain.NodeID, bool) { return f.hint, f.hasHint }
func (f *fakeCluster) ActiveNodes() map[domain.ZoneID][]domain.NodeID   { return f.activeZone }

type fakeTransport struct {
	whoIsLeader func(ctx context.Context, node domain.NodeID, name domain.GroupName) (domain.ReplicaRef, bool, error)
	dispatch    func(ctx context.Context, ref domain.ReplicaRef, op Operation) (any, error)
}

func (f *fakeTransport) Dispatch(ctx context.Context, ref domain.ReplicaRef, op Operation) (any, error) {
	return f.dispatch(ctx, ref, op)
}

func (f *fakeTransport) WhoIsLeader(ctx context.Context, node domain.NodeID, name domain.GroupName) (domain.ReplicaRef, bool, error) {
	return f.whoIsLeader(ctx, node, name)
}

func fastCfg() Config {
	return Config{Timeout: 50 * time.Millisecond, Retry: 2, RetryInterval: 5 * time.Millisecond}
}

func TestDispatchUsesCachedHandle(t *testing.T) {
	cache := NewCache()
	cache.Set("g", domain.ReplicaRef{Group: "g", Node: "A", Addr: "10.0.0.1"})

	var sawRef domain.ReplicaRef
	transport := &fakeTransport{
		dispatch: func(_ context.Context, ref domain.ReplicaRef, _ Operation) (any, error) {
			sawRef = ref
			return "ok", nil
		},
	}
	r := NewResolver(cache, &fakeCluster{}, transport, nil)

	res, err := r.Dispatch(context.Background(), "g", Operation{Name: "g", Kind: OpQuery}, fastCfg())
	if err != nil || res != "ok" {
		t.Fatalf("expected ok, got %v %v", res, err)
	}
	if sawRef.Node != "A" {
		t.Fatalf("expected dispatch to use cached node A, got %v", sawRef.Node)
	}
}

func TestDispatchDiscoversViaLeaderHint(t *testing.T) {
	cache := NewCache()
	cluster := &fakeCluster{hint: "A", hasHint: true}
	transport := &fakeTransport{
		whoIsLeader: func(_ context.Context, node domain.NodeID, _ domain.GroupName) (domain.ReplicaRef, bool, error) {
			if node != "A" {
				t.Fatalf("expected to probe hinted node A, got %v", node)
			}
			return domain.ReplicaRef{Group: "g", Node: "A", Addr: "10.0.0.1"}, true, nil
		},
		dispatch: func(_ context.Context, _ domain.ReplicaRef, _ Operation) (any, error) {
			return "ok", nil
		},
	}
	r := NewResolver(cache, cluster, transport, nil)

	res, err := r.Dispatch(context.Background(), "g", Operation{Name: "g", Kind: OpQuery}, fastCfg())
	if err != nil || res != "ok" {
		t.Fatalf("expected ok, got %v %v", res, err)
	}
	if _, ok := cache.Get("g"); !ok {
		t.Fatalf("expected successful discovery to populate the cache")
	}
}

func TestDispatchBroadcastsWhenNoHint(t *testing.T) {
	cache := NewCache()
	cluster := &fakeCluster{activeZone: map[domain.ZoneID][]domain.NodeID{
		"z1": {"A", "B"},
	}}
	probed := map[domain.NodeID]bool{}
	transport := &fakeTransport{
		whoIsLeader: func(_ context.Context, node domain.NodeID, _ domain.GroupName) (domain.ReplicaRef, bool, error) {
			probed[node] = true
			if node == "B" {
				return domain.ReplicaRef{Group: "g", Node: "B"}, true, nil
			}
			return domain.ReplicaRef{}, false, nil
		},
		dispatch: func(_ context.Context, _ domain.ReplicaRef, _ Operation) (any, error) {
			return "ok", nil
		},
	}
	r := NewResolver(cache, cluster, transport, nil)

	res, err := r.Dispatch(context.Background(), "g", Operation{Name: "g", Kind: OpQuery}, fastCfg())
	if err != nil || res != "ok" {
		t.Fatalf("expected ok, got %v %v", res, err)
	}
	if !probed["A"] || !probed["B"] {
		t.Fatalf("expected broadcast to probe every active node, got %v", probed)
	}
}

func TestDispatchEvictsCacheOnTransportFailure(t *testing.T) {
	cache := NewCache()
	cache.Set("g", domain.ReplicaRef{Group: "g", Node: "stale"})
	cluster := &fakeCluster{hint: "A", hasHint: true}

	calls := 0
	transport := &fakeTransport{
		whoIsLeader: func(_ context.Context, node domain.NodeID, _ domain.GroupName) (domain.ReplicaRef, bool, error) {
			return domain.ReplicaRef{Group: "g", Node: "A"}, true, nil
		},
		dispatch: func(_ context.Context, ref domain.ReplicaRef, _ Operation) (any, error) {
			calls++
			if ref.Node == "stale" {
				return nil, errors.New("connection refused")
			}
			return "ok", nil
		},
	}
	r := NewResolver(cache, cluster, transport, nil)

	res, err := r.Dispatch(context.Background(), "g", Operation{Name: "g", Kind: OpQuery}, fastCfg())
	if err != nil || res != "ok" {
		t.Fatalf("expected recovery after eviction, got %v %v", res, err)
	}
	if calls < 2 {
		t.Fatalf("expected at least 2 dispatch attempts, got %d", calls)
	}
}

func TestDispatchReturnsNoLeaderWhenExhausted(t *testing.T) {
	cache := NewCache()
	cluster := &fakeCluster{}
	transport := &fakeTransport{
		whoIsLeader: func(context.Context, domain.NodeID, domain.GroupName) (domain.ReplicaRef, bool, error) {
			return domain.ReplicaRef{}, false, nil
		},
	}
	r := NewResolver(cache, cluster, transport, nil)

	_, err := r.Dispatch(context.Background(), "g", Operation{Name: "g", Kind: OpQuery}, fastCfg())
	if !errors.Is(err, domain.ErrNoLeader) {
		t.Fatalf("expected no_leader, got %v", err)
	}
}
