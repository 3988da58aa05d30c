package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/raftfleet/raftfleet/internal/cli/output"
)

// NodesCommand returns the "nodes" subcommand group, implementing
// activate(zone), deactivate() and active_nodes() (§6.1).
func NodesCommand() *cli.Command {
	return &cli.Command{
		Name:    "nodes",
		Aliases: []string{"node"},
		Usage:   "manage this node's membership in the cluster group",
		Subcommands: []*cli.Command{
			{
				Name:  "activate",
				Usage: "activate this node in a zone",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "zone", Required: true, Usage: "availability zone to join"},
					&cli.StringFlag{Name: "ref", Usage: "idempotency reference (optional)"},
				},
				Action: nodesActivate,
			},
			{
				Name:  "deactivate",
				Usage: "deactivate this node",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "ref", Usage: "idempotency reference (optional)"},
				},
				Action: nodesDeactivate,
			},
			{
				Name:   "list",
				Usage:  "list active nodes per zone",
				Action: nodesList,
			},
		},
	}
}

func nodesActivate(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Activate(ctx, c.String("zone"), c.String("ref")); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	fmt.Printf("node activated in zone %q\n", c.String("zone"))
	return nil
}

func nodesDeactivate(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Deactivate(ctx, c.String("ref")); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	fmt.Println("node deactivated")
	return nil
}

func nodesList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	zones, err := client.ActiveNodes(ctx)
	if err != nil {
		return fmt.Errorf("active-nodes: %w", err)
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, zones)
	}

	table := &output.Table{}
	table.SetHeaders("ZONE", "NODES")
	for zone, nodes := range zones {
		table.AddRow(zone, fmt.Sprint(nodes))
	}
	return table.RenderWithOptions(os.Stdout, false)
}
