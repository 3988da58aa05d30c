package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/raftfleet/raftfleet/internal/cli/output"
)

// StatusCommand returns the "status" subcommand group: a fleet-wide summary
// built from §6.1's active_nodes/consensus_groups queries, and a plain
// /health probe.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"sys"},
		Usage:   "fleet status commands",
		Subcommands: []*cli.Command{
			{
				Name:   "summary",
				Usage:  "show active node and group counts",
				Action: statusSummary,
			},
			{
				Name:   "health",
				Usage:  "check raftfleetd admin API health",
				Action: statusHealth,
			},
		},
	}
}

func statusSummary(c *cli.Context) error {
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
	groups, err := client.ConsensusGroups(ctx)
	if err != nil {
		return fmt.Errorf("consensus-groups: %w", err)
	}

	nodeCount := 0
	for _, nodes := range zones {
		nodeCount += len(nodes)
	}

	summary := map[string]any{
		"zones":        len(zones),
		"active_nodes": nodeCount,
		"groups":       len(groups),
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, summary)
	}

	fmt.Printf("Fleet Status\n")
	fmt.Printf("============\n\n")
	fmt.Printf("Zones:        %d\n", len(zones))
	fmt.Printf("Active nodes: %d\n", nodeCount)
	fmt.Printf("Groups:       %d\n", len(groups))
	return nil
}

func statusHealth(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := client.Health(ctx)
	if err != nil {
		PrintError("health check failed: %v", err)
		return fmt.Errorf("server unhealthy")
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, map[string]string{"status": status})
	}

	if status == "healthy" {
		fmt.Printf("✓ server is healthy (%s)\n", flags.Server)
	} else {
		fmt.Printf("✗ server is unhealthy: %s\n", status)
	}
	return nil
}
