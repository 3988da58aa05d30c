// Package command provides raftfleetctl's CLI command definitions.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: root command, global flags, connection resolution
//   - nodes.go: activate/deactivate/active-nodes
//   - groups.go: add/remove/list consensus groups
//   - call.go: command/query dispatch against a group
//   - leader.go: whereis-leader lookup
//   - status.go: fleet status/health summary
//   - config.go: local CLI configuration
//   - connect.go: saved-connection management
//
// Commands follow a consistent pattern of parsing flags, calling the
// appropriate adminapi.Client method, and formatting output.
//
// @design DS-0601
package command
