package cluster

import "fmt"

// checkInvariants enforces the properties listed in §8. It never runs
// on the hot path; Apply's command handlers
// are written to preserve these by construction.
func checkInvariants(s *State) error {
	for name, g := range s.Groups {
		if len(g.Members) > g.NReplica {
			return fmt.Errorf("group %s has %d members, exceeds n_replica %d", name, len(g.Members), g.NReplica)
		}
		if g.LeaderNode != "" {
			if _, ok := g.Members[g.LeaderNode]; !ok {
				return fmt.Errorf("group %s leader %s is not a member", name, g.LeaderNode)
			}
		}
		if _, tombstoned := s.RecentlyRemoved[name]; tombstoned {
			return fmt.Errorf("group %s present in both groups and recently_removed", name)
		}
	}

	seen := map[string]bool{}
	for zone, nodes := range s.NodesPerZone {
		for n := range nodes {
			key := string(n)
			if seen[key] {
				return fmt.Errorf("node %s appears in more than one zone (also %s)", n, zone)
			}
			seen[key] = true
		}
	}
	return nil
}
