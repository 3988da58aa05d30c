// Package command provides raftfleetctl's CLI command definitions.
//
// It uses urfave/cli/v2 for command parsing and supports both
// single-command mode and interactive REPL mode.
package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/raftfleet/raftfleet/internal/adminapi"
	"github.com/raftfleet/raftfleet/internal/cli/connection"
	"github.com/raftfleet/raftfleet/internal/cli/output"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the raftfleetctl CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "raftfleetctl",
		Usage:   "manage a raftfleet cluster group and its user consensus groups",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ConnectCommand(),
			NodesCommand(),
			GroupsCommand(),
			CallCommand(),
			LeaderCommand(),
			StatusCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			mgr := connection.NewManager()
			c.App.Metadata["connMgr"] = mgr
			return nil
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "raftfleetd admin API address (e.g. localhost:7400)",
			EnvVars: []string{"RAFTFLEETCTL_SERVER"},
			Value:   "localhost:7400",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// GlobalFlags holds the flags available to every command.
type GlobalFlags struct {
	Server  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:  c.String("server"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata["connMgr"].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected resolves the admin API client for the current command:
// an explicit --server flag wins, otherwise the connection manager's
// current connection, otherwise the global default.
func EnsureConnected(c *cli.Context) (*adminapi.Client, error) {
	server := c.String("server")
	if !c.IsSet("server") {
		if mgr := GetConnectionManager(c); mgr != nil && mgr.IsConnected() {
			server = mgr.Current().Server
		}
	}
	return connection.Client(server), nil
}

// startSpinnerIfTable starts an output.Spinner for a slow round trip, but
// only in the default table output mode: a spinner's carriage-return
// animation would corrupt piped JSON/YAML. Callers must call Success or
// Fail on the result once the call finishes; a nil return means skip both.
func startSpinnerIfTable(c *cli.Context, message string) *output.Spinner {
	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		return nil
	}
	s := output.NewSpinner(os.Stdout, message)
	s.Start()
	return s
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
