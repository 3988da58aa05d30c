package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// LeaderCommand returns "leader", implementing whereis_leader(name) (§6.1).
func LeaderCommand() *cli.Command {
	return &cli.Command{
		Name:      "leader",
		Usage:     "show the believed leader node of a consensus group",
		ArgsUsage: "NAME",
		Action:    leaderShow,
	}
}

func leaderShow(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("group name required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	node, found, err := client.WhereIsLeader(ctx, name)
	if err != nil {
		return fmt.Errorf("whereis-leader: %w", err)
	}
	if !found {
		fmt.Printf("%s: no known leader\n", name)
		return nil
	}
	fmt.Printf("%s: %s\n", name, node)
	return nil
}
