// Package main provides the entry point for raftfleetctl.
//
// raftfleetctl is the operator CLI against a running raftfleetd's admin
// HTTP API (§6.1): it can run a single command and exit, or, with no
// arguments beyond global flags, drop into an interactive REPL.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/raftfleet/raftfleet/internal/cli/command"
	"github.com/raftfleet/raftfleet/internal/cli/repl"
	"github.com/raftfleet/raftfleet/internal/infra/buildinfo"
)

func main() {
	command.Version = buildinfo.Version
	command.Commit = buildinfo.Commit
	command.BuildTime = buildinfo.BuildTime

	app := command.App()

	if len(os.Args) == 1 {
		runInteractive(app)
		return
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runInteractive starts the REPL, routing each line through the same
// *cli.App used for single-shot invocations so every command behaves
// identically in both modes.
func runInteractive(app *cli.App) {
	session := repl.New(func(args []string) error {
		return app.Run(append([]string{"raftfleetctl"}, args...))
	})
	if err := session.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
