package placement

import (
	"reflect"
	"testing"

	"github.com/raftfleet/raftfleet/internal/core/domain"
)

func zones() map[domain.ZoneID][]domain.NodeID {
	return map[domain.ZoneID][]domain.NodeID{
		"1": {"A", "D"},
		"2": {"B", "E"},
		"3": {"C", "F"},
	}
}

func TestDeterministic(t *testing.T) {
	a := LRWMembers(zones(), "g", 3)
	b := LRWMembers(zones(), "g", 3)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical output for identical input, got %v then %v", a, b)
	}
}

func TestZoneSpread(t *testing.T) {
	out := LRWMembers(zones(), "g", 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(out))
	}
	zoneOf := map[domain.NodeID]domain.ZoneID{
		"A": "1", "D": "1", "B": "2", "E": "2", "C": "3", "F": "3",
	}
	seen := map[domain.ZoneID]bool{}
	for _, n := range out {
		z := zoneOf[n]
		if seen[z] {
			t.Fatalf("zone %s used twice in a k<=min(|zone|) placement: %v", z, out)
		}
		seen[z] = true
	}
}

func TestMonotoneTruncation(t *testing.T) {
	m := zones()
	prev := LRWMembers(m, "g", 1)
	for k := 2; k <= 6; k++ {
		cur := LRWMembers(m, "g", k)
		for i, n := range prev {
			if cur[i] != n {
				t.Fatalf("lrw_members(_,_,%d) is not a prefix of lrw_members(_,_,%d): %v vs %v", k-1, k, prev, cur)
			}
		}
		prev = cur
	}
}

func TestNToTakeExceedsAvailable(t *testing.T) {
	out := LRWMembers(zones(), "g", 100)
	if len(out) != 6 {
		t.Fatalf("expected all 6 available nodes, got %d", len(out))
	}
}

func TestEmptyZoneSkipped(t *testing.T) {
	m := zones()
	m["4"] = nil
	out := LRWMembers(m, "g", 6)
	if len(out) != 6 {
		t.Fatalf("empty zone should be skipped, not cause a short/failed result, got %v", out)
	}
}

func TestStabilityUnderNodeRemoval(t *testing.T) {
	// Rendezvous property: removing one node should perturb a small minority
	// of task ids, not all of them.
	m := zones()
	changed := 0
	const tasks = 200
	for i := 0; i < tasks; i++ {
		taskID := string(rune('a' + i%26))
		before := LRWMembers(m, taskID, 3)

		withoutA := map[domain.ZoneID][]domain.NodeID{
			"1": {"D"},
			"2": {"B", "E"},
			"3": {"C", "F"},
		}
		after := LRWMembers(withoutA, taskID, 3)

		beforeSet := map[domain.NodeID]bool{}
		for _, n := range before {
			beforeSet[n] = true
		}
		for _, n := range after {
			if !beforeSet[n] {
				changed++
				break
			}
		}
	}
	if changed > tasks/2 {
		t.Fatalf("expected a minority of placements to change after removing one node, got %d/%d", changed, tasks)
	}
}
