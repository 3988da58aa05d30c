// Package connection manages raftfleetctl's connection to a raftfleetd
// admin API endpoint.
//
//   - manager.go: current-connection state and the adminapi.Client it wraps
//
// @design DS-0602
package connection
