// Package persist answers manager.PersistenceChecker (§4.6.3, §9): whether
// a group previously existed on a given node under that node's configured
// persistence directory, so bootstrap delegation prefers a node that
// already has the group's data on disk over starting fresh elsewhere.
package persist

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"

	"github.com/raftfleet/raftfleet/internal/core/domain"
)

// Marker is a tiny Badger-backed existence index: one key per
// (group, node) pair that has ever bootstrapped a replica under this
// node's persistence_dir_parent.
type Marker struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the marker store rooted at dir.
func Open(dir string, logger *slog.Logger) (*Marker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("persist: open marker store: %w", err)
	}
	return &Marker{db: db, logger: logger}, nil
}

func markerKey(group domain.GroupName, node domain.NodeID) []byte {
	return []byte(string(group) + "\x00" + string(node))
}

// Exists implements manager.PersistenceChecker.
func (m *Marker) Exists(group domain.GroupName, node domain.NodeID) bool {
	var found bool
	_ = m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(markerKey(group, node))
		if err == nil {
			found = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	return found
}

// MarkExists records that node has (or is about to) bootstrap a replica of
// group under this node's persistence directory. Nothing in this module
// calls it outside its tests; in particular the bootstrap path does not,
// so Exists reports true only for markers written by a direct call.
func (m *Marker) MarkExists(group domain.GroupName, node domain.NodeID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(markerKey(group, node), []byte{1})
	})
}

// Close releases the underlying Badger handles.
func (m *Marker) Close() error {
	return m.db.Close()
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Error(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Info(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debug(fmt.Sprintf(format, args...)) }
