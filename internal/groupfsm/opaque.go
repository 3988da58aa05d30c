// Package groupfsm implements the Raft FSM run by user-defined consensus
// groups. Per §3/§9's non-goals, the replicated value inside a user group
// is opaque to the fleet manager: this FSM only stores and returns the
// latest applied byte string, never interpreting it.
package groupfsm

import (
	"bytes"
	"io"
	"sync"

	"github.com/hashicorp/raft"
)

// Opaque is a raft.FSM whose replicated value is an uninterpreted byte
// string. Every Apply replaces the value and returns a copy of it; queries
// read the current value directly via Value().
type Opaque struct {
	mu    sync.RWMutex
	value []byte
}

// New constructs an empty opaque FSM.
func New() *Opaque {
	return &Opaque{}
}

// Apply replaces the current value with log.Data and returns a copy of it.
func (o *Opaque) Apply(log *raft.Log) any {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = append([]byte(nil), log.Data...)
	return append([]byte(nil), o.value...)
}

// Value returns the current replicated value, for read-only queries served
// off a linearizable Barrier (§5).
func (o *Opaque) Value() []byte {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]byte(nil), o.value...)
}

func (o *Opaque) Snapshot() (raft.FSMSnapshot, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return &opaqueSnapshot{value: append([]byte(nil), o.value...)}, nil
}

func (o *Opaque) Restore(r io.ReadCloser) error {
	defer r.Close()
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return err
	}
	o.mu.Lock()
	o.value = buf.Bytes()
	o.mu.Unlock()
	return nil
}

type opaqueSnapshot struct {
	value []byte
}

func (s *opaqueSnapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := sink.Write(s.value); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *opaqueSnapshot) Release() {}
