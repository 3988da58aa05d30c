// Package repl provides interactive mode for raftfleetctl.
//
// This package implements the Read-Eval-Print Loop for interactive sessions:
//
//   - repl.go: Main REPL loop and command dispatch
//   - completer.go: Prefix completion for commands and subcommands
//   - history.go: Command history persistence
//
// Features:
//
//   - Prefix completion via Completer.Complete (Run itself reads plain
//     lines and offers no tab completion)
//   - Every entered line is recorded in History, which Save and Load
//     persist to ~/.raftfleet/history
//
// Input is read one line at a time; there is no multi-line input, no
// history search or navigation, and no colored output.
//
// @design DS-0602
package repl
