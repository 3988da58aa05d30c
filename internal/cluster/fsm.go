package cluster

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/raft"
)

// DefaultTombstoneTTL bounds how long a removed group's name is protected
// against a racing add_group before expire_tombstones drops it. Not named
// in §6.2's configuration table; added here because expire_tombstones is
// otherwise a no-op.
const DefaultTombstoneTTL = 24 * time.Hour

// maxAppliedRefs bounds the idempotency cache so a long-lived cluster group
// doesn't grow it without limit; bounded by a FIFO of references rather than
// time, since commands don't carry a reliable wall-clock of their own.
const maxAppliedRefs = 4096

// FSM is the cluster group's Raft state machine.
type FSM struct {
	mu     sync.RWMutex
	state  *State
	logger *slog.Logger

	tombstoneTTL time.Duration

	appliedRefs   map[string]error
	appliedOrder  []string
}

// NewFSM constructs an empty cluster-group FSM.
func NewFSM(logger *slog.Logger) *FSM {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSM{
		state:        newState(),
		logger:       logger,
		tombstoneTTL: DefaultTombstoneTTL,
		appliedRefs:  make(map[string]error),
	}
}

// Apply dispatches one committed log entry. It panics only on unmarshal
// corruption (an irrecoverable local fault per §7); every business-rule
// failure named in §4.3's command table (already_added, not_found, ...) is
// returned as the response value instead, so Raft keeps applying and
// callers decide whether it's terminal.
func (f *FSM) Apply(log *raft.Log) any {
	var entry LogEntry
	if err := json.Unmarshal(log.Data, &entry); err != nil {
		f.logger.Error("FATAL: cluster log entry corrupted", "index", log.Index, "error", err)
		panic(fmt.Sprintf("cluster FSM: unmarshal failed at index=%d: %v", log.Index, err))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if entry.Ref != "" {
		if cached, seen := f.appliedRefs[entry.Ref]; seen {
			return cached
		}
	}

	now := time.Now()
	err := f.dispatch(entry, now)

	if entry.Ref != "" {
		f.rememberRef(entry.Ref, err)
	}
	return err
}

func (f *FSM) dispatch(entry LogEntry, now time.Time) error {
	switch entry.Type {
	case CmdActivate:
		var p ActivatePayload
		mustUnmarshal(entry.Payload, &p, "activate")
		return applyActivate(f.state, p)
	case CmdDeactivate:
		var p DeactivatePayload
		mustUnmarshal(entry.Payload, &p, "deactivate")
		return applyDeactivate(f.state, p)
	case CmdAddGroup:
		var p AddGroupPayload
		mustUnmarshal(entry.Payload, &p, "add_group")
		return applyAddGroup(f.state, p)
	case CmdRemoveGroup:
		var p RemoveGroupPayload
		mustUnmarshal(entry.Payload, &p, "remove_group")
		return applyRemoveGroup(f.state, p, now)
	case CmdReportMemberUp:
		var p ReportMemberUpPayload
		mustUnmarshal(entry.Payload, &p, "report_member_up")
		return applyReportMemberUp(f.state, p)
	case CmdReportMemberDown:
		var p ReportMemberDownPayload
		mustUnmarshal(entry.Payload, &p, "report_member_down")
		return applyReportMemberDown(f.state, p)
	case CmdReportLeader:
		var p ReportLeaderPayload
		mustUnmarshal(entry.Payload, &p, "report_leader")
		return applyReportLeader(f.state, p)
	case CmdRecordNodeFailure:
		var p RecordNodeFailurePayload
		mustUnmarshal(entry.Payload, &p, "record_node_failure")
		return applyRecordNodeFailure(f.state, p, now)
	case CmdPurgeNode:
		var p PurgeNodePayload
		mustUnmarshal(entry.Payload, &p, "purge_node")
		return applyPurgeNode(f.state, p)
	case CmdExpireTombstones:
		var p ExpireTombstonesPayload
		mustUnmarshal(entry.Payload, &p, "expire_tombstones")
		return applyExpireTombstones(f.state, p, f.tombstoneTTL)
	default:
		f.logger.Error("FATAL: unknown cluster command type", "type", entry.Type)
		panic(fmt.Sprintf("cluster FSM: unknown command type %d", entry.Type))
	}
}

func mustUnmarshal(raw json.RawMessage, v any, what string) {
	if err := json.Unmarshal(raw, v); err != nil {
		panic(fmt.Sprintf("cluster FSM: unmarshal %s payload: %v", what, err))
	}
}

func (f *FSM) rememberRef(ref string, err error) {
	if _, exists := f.appliedRefs[ref]; exists {
		return
	}
	if len(f.appliedOrder) >= maxAppliedRefs {
		oldest := f.appliedOrder[0]
		f.appliedOrder = f.appliedOrder[1:]
		delete(f.appliedRefs, oldest)
	}
	f.appliedRefs[ref] = err
	f.appliedOrder = append(f.appliedOrder, ref)
}

// Snapshot returns the data that reconstructs FSM state on Restore.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &fsmSnapshot{state: f.state.clone(), ttl: f.tombstoneTTL}, nil
}

// Restore replaces FSM state wholesale from a gzip-compressed JSON snapshot.
func (f *FSM) Restore(r io.ReadCloser) error {
	defer r.Close()

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("cluster FSM: gzip reader: %w", err)
	}
	defer gz.Close()

	var payload snapshotPayload
	if err := json.NewDecoder(gz).Decode(&payload); err != nil {
		return fmt.Errorf("cluster FSM: decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = payload.State
	f.tombstoneTTL = payload.TombstoneTTL
	f.appliedRefs = make(map[string]error)
	f.appliedOrder = nil

	f.logger.Info("cluster state restored from snapshot",
		"zones", len(f.state.NodesPerZone), "groups", len(f.state.Groups))
	return nil
}

type snapshotPayload struct {
	State        *State        `json:"state"`
	TombstoneTTL time.Duration `json:"tombstone_ttl"`
}

type fsmSnapshot struct {
	state *State
	ttl   time.Duration
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		gz := gzip.NewWriter(sink)
		defer gz.Close()
		if err := json.NewEncoder(gz).Encode(snapshotPayload{State: s.state, TombstoneTTL: s.ttl}); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return gz.Close()
	}()
	if err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
