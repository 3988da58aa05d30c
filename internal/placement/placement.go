// Package placement implements zone-aware rendezvous (LRW) placement: given
// a zone→nodes map and a task id, it picks N nodes spread across zones
// before doubling up within one (§4.2).
package placement

import (
	"sort"

	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/hash"
)

type candidate struct {
	rank int
	hash uint64
	node domain.NodeID
}

// LRWMembers returns up to nToTake NodeIds for taskID, chosen by rendezvous
// weighting across zones.
//
// Algorithm: within each zone, hash every node against taskID, sort
// ascending by hash, and number that zone-local ordering 0, 1, 2, ... (its
// rank). Collect every (rank, hash, node) triple across all zones, sort
// ascending by (rank, hash, node), and take the first nToTake. The rank
// prefix round-robins across zones — every zone's rank-0 pick sorts before
// any zone's rank-1 pick — and the hash ordering within a rank gives
// rendezvous stability: adding or removing one node only reorders hashes
// local to its own zone.
//
// If nToTake exceeds the number of available nodes, every available node is
// returned. Empty zones are skipped.
func LRWMembers(nodesPerZone map[domain.ZoneID][]domain.NodeID, taskID string, nToTake int) []domain.NodeID {
	var candidates []candidate

	for _, nodes := range nodesPerZone {
		if len(nodes) == 0 {
			continue
		}
		zoneRanked := make([]candidate, len(nodes))
		for i, n := range nodes {
			zoneRanked[i] = candidate{hash: hash.Of(string(n), taskID), node: n}
		}
		sort.Slice(zoneRanked, func(i, j int) bool {
			if zoneRanked[i].hash != zoneRanked[j].hash {
				return zoneRanked[i].hash < zoneRanked[j].hash
			}
			return zoneRanked[i].node < zoneRanked[j].node
		})
		for rank := range zoneRanked {
			zoneRanked[rank].rank = rank
		}
		candidates = append(candidates, zoneRanked...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		if candidates[i].hash != candidates[j].hash {
			return candidates[i].hash < candidates[j].hash
		}
		// Explicit NodeId tiebreak (resolves the open question in §9): sort
		// stability alone isn't a portable contract across sort
		// implementations, so the final key is always named.
		return candidates[i].node < candidates[j].node
	})

	if nToTake > len(candidates) {
		nToTake = len(candidates)
	}

	out := make([]domain.NodeID, nToTake)
	for i := 0; i < nToTake; i++ {
		out[i] = candidates[i].node
	}
	return out
}
