package manager

import (
	"context"
	"errors"

	"github.com/raftfleet/raftfleet/internal/cluster"
	"github.com/raftfleet/raftfleet/internal/core/domain"
)

// AddGroup runs on the cluster-group leader's Manager. It commits
// add_group, then bootstraps the group's first replica per §4.6.3: locally
// if this node should host it, delegated to whichever node persistence
// says previously held it otherwise. A failed bootstrap rolls the
// add_group back with a compensating remove_group (§7); per the resolved
// §9 open question, if that rollback itself fails no tombstone is created
// and the error is returned as-is for operator remediation.
func (m *Manager) AddGroup(ctx context.Context, ref string, name domain.GroupName, nReplica int, rvConfig domain.RVConfig) error {
	if name == cluster.GroupName {
		return domain.ErrAlreadyAdded.WithDetails(string(name))
	}
	data, err := cluster.EncodeAddGroup(ref, name, nReplica, rvConfig, "")
	if err != nil {
		return err
	}
	res, err := m.cluster.Apply(data, m.cfg.ApplyTimeout)
	if err != nil {
		return err
	}
	if res != nil {
		return res.(error)
	}

	if !m.cluster.IsLeader() {
		// Only the cluster-group leader bootstraps; other nodes learn of
		// the new group on the next balancing tick.
		return nil
	}

	target := m.cfg.NodeID
	if m.persist != nil {
		for _, candidate := range m.knownNodes() {
			if m.persist.Exists(name, candidate) {
				target = candidate
				break
			}
		}
	}

	result, derr := m.delegate.DelegateBootstrap(ctx, target, name, nReplica, rvConfig)
	if derr != nil || result == DelegateProcessExists {
		if rbErr := m.rollbackAddGroup(ref, name); rbErr != nil {
			m.logger.Error("add_group rollback failed, group left in inconsistent state",
				"group", name, "bootstrap_error", derr, "rollback_error", rbErr)
			if derr == nil {
				derr = domain.ErrProcessExists
			}
			return derr
		}
		if derr == nil {
			derr = domain.ErrProcessExists
		}
		return derr
	}

	if result == DelegateLeaderStarted {
		upData, err := cluster.EncodeReportMemberUp(m.nextRef("bootstrap-up-"+string(name)), name, target)
		if err != nil {
			return err
		}
		if _, err := m.cluster.Apply(upData, m.cfg.ApplyTimeout); err != nil {
			return err
		}
	}
	return nil
}

// RemoveGroup commits remove_group and, if this node runs a local replica
// for it, stops it.
func (m *Manager) RemoveGroup(ctx context.Context, ref string, name domain.GroupName) error {
	data, err := cluster.EncodeRemoveGroup(ref, name)
	if err != nil {
		return err
	}
	res, err := m.cluster.Apply(data, m.cfg.ApplyTimeout)
	if err != nil {
		return err
	}
	if res != nil {
		return res.(error)
	}
	return m.stopLocalReplica(name)
}

func (m *Manager) rollbackAddGroup(ref string, name domain.GroupName) error {
	data, err := cluster.EncodeRemoveGroup(m.nextRef("rollback-"+ref), name)
	if err != nil {
		return err
	}
	res, err := m.cluster.Apply(data, m.cfg.ApplyTimeout)
	if err != nil {
		return err
	}
	if res != nil {
		if e, ok := res.(error); ok && !errors.Is(e, domain.ErrNotFound) {
			return e
		}
	}
	return nil
}

func (m *Manager) knownNodes() []domain.NodeID {
	var out []domain.NodeID
	for _, nodes := range m.state.ActiveNodes() {
		out = append(out, nodes...)
	}
	return out
}
