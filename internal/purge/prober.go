// Package purge implements the PurgeController of §4.7: on the cluster
// group's leader, it probes node connectivity, tracks per-node failure
// counts, and proposes purge_node once a node has been unhealthy longer
// than the configured failure window.
package purge

import (
	"github.com/hashicorp/memberlist"

	"github.com/raftfleet/raftfleet/internal/core/domain"
)

// LivenessProber reports whether a node currently looks reachable. It is
// narrowed to liveness only: it never uses gossip to learn zone/placement
// topology (§1's non-goal on dynamic zone discovery) — ActiveNodes() from
// ClusterState remains the only source of truth for which nodes exist.
type LivenessProber interface {
	Probe(node domain.NodeID) bool
	// Reconnect attempts to re-establish contact with node at addr. The
	// controller calls it only when Config.NodeAddr is set and returns a
	// non-empty address for node.
	Reconnect(node domain.NodeID, addr string) error
}

// MemberlistProber backs LivenessProber with hashicorp/memberlist,
// using only its join/members primitives, not its event delegate (no
// join/leave callbacks drive placement here).
type MemberlistProber struct {
	ml *memberlist.Memberlist
}

// NewMemberlistProber starts a gossip member list bound to bindAddr, used
// purely as a connectivity probe.
func NewMemberlistProber(nodeName, bindAddr string, bindPort int) (*MemberlistProber, error) {
	cfg := memberlist.DefaultLANConfig()
	cfg.Name = nodeName
	cfg.BindAddr = bindAddr
	cfg.BindPort = bindPort

	ml, err := memberlist.Create(cfg)
	if err != nil {
		return nil, err
	}
	return &MemberlistProber{ml: ml}, nil
}

func (p *MemberlistProber) Probe(node domain.NodeID) bool {
	for _, m := range p.ml.Members() {
		if m.Name == string(node) {
			return true
		}
	}
	return false
}

func (p *MemberlistProber) Reconnect(_ domain.NodeID, addr string) error {
	_, err := p.ml.Join([]string{addr})
	return err
}

func (p *MemberlistProber) Shutdown() error {
	return p.ml.Shutdown()
}
