// Package repl provides the interactive REPL mode for raftfleetctl.
package repl

import "strings"

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"nodes", "nodes activate", "nodes deactivate", "nodes list",
			"groups", "groups list", "groups add", "groups remove",
			"call command", "call query",
			"leader",
			"status summary", "status health",
			"config show", "config set",
			"connect", "connect disconnect", "connect use",
			"help", "exit", "quit",
		},
	}
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
