// Package command provides raftfleetctl's CLI command definitions.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/raftfleet/raftfleet/internal/cli/config"
	"github.com/raftfleet/raftfleet/internal/cli/connection"
)

// ConnectCommand returns the connect command group: connect, disconnect,
// and use (switch to a saved connection).
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "connect to a raftfleetd admin API",
		ArgsUsage: "[SERVER]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "connection name (for saving, optional)",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "persist this connection in the local config under --name",
			},
		},
		Action: connectAction,
		Subcommands: []*cli.Command{
			DisconnectCommand(),
			UseCommand(),
		},
	}
}

func connectAction(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	server := c.Args().First()
	if server == "" {
		server = flags.Server
	}

	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}

	name := c.String("name")
	conn := &connection.Connection{Name: name, Server: server}
	if err := mgr.Connect(conn); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	if c.Bool("save") {
		if name == "" {
			return fmt.Errorf("--name is required with --save")
		}
		if err := saveConnection(name, server); err != nil {
			return err
		}
	}

	fmt.Printf("connected to %s\n", server)
	return nil
}

// DisconnectCommand returns the disconnect command.
func DisconnectCommand() *cli.Command {
	return &cli.Command{
		Name:   "disconnect",
		Usage:  "disconnect from the current server",
		Action: disconnectAction,
	}
}

func disconnectAction(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}

	if !mgr.IsConnected() {
		fmt.Println("not connected to any server")
		return nil
	}

	mgr.Disconnect()
	fmt.Println("disconnected")
	return nil
}

// UseCommand returns the "use" command for switching to a saved connection.
func UseCommand() *cli.Command {
	return &cli.Command{
		Name:      "use",
		Usage:     "switch to a saved connection",
		ArgsUsage: "CONNECTION_NAME",
		Action:    useAction,
	}
}

func useAction(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("connection name required")
	}

	cfg, err := cliconfig.Load("")
	if err != nil {
		return err
	}
	saved, ok := cfg.Connections[name]
	if !ok {
		return fmt.Errorf("no saved connection named %q", name)
	}

	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}
	if err := mgr.Connect(&connection.Connection{Name: name, Server: saved.Server}); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	cfg.CurrentConnection = name
	if err := cliconfig.Save(cfg, ""); err != nil {
		return err
	}

	fmt.Printf("switched to connection %q (%s)\n", name, saved.Server)
	return nil
}

func saveConnection(name, server string) error {
	cfg, err := cliconfig.Load("")
	if err != nil {
		return err
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]cliconfig.ConnectionConfig)
	}
	cfg.Connections[name] = cliconfig.ConnectionConfig{Server: server}
	cfg.CurrentConnection = name
	return cliconfig.Save(cfg, "")
}
