package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/raftfleet/raftfleet/internal/cli/output"
)

// CallCommand returns the "command"/"query" subcommands, implementing the
// §6.1 command(name, arg, ...) and query(name, arg, ...) dispatch.
func CallCommand() *cli.Command {
	return &cli.Command{
		Name:    "call",
		Aliases: []string{"c"},
		Usage:   "dispatch a command or query to a consensus group's leader",
		Subcommands: []*cli.Command{
			{
				Name:      "command",
				Usage:     "submit a mutating command to a group",
				ArgsUsage: "NAME ARG",
				Flags:     callFlags(),
				Action:    callCommand,
			},
			{
				Name:      "query",
				Usage:     "submit a read-only query to a group",
				ArgsUsage: "NAME ARG",
				Flags:     callFlags(),
				Action:    callQuery,
			},
		},
	}
}

func callFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "ref", Usage: "idempotency reference (optional, command only)"},
	}
}

func callCommand(c *cli.Context) error {
	name, arg, err := callArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ret, err := client.Command(ctx, name, arg, c.String("ref"))
	if err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return renderCallResult(c, ret)
}

func callQuery(c *cli.Context) error {
	name, arg, err := callArgs(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ret, err := client.Query(ctx, name, arg)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return renderCallResult(c, ret)
}

func callArgs(c *cli.Context) (name string, arg []byte, err error) {
	name = c.Args().Get(0)
	if name == "" {
		return "", nil, fmt.Errorf("group name required")
	}
	return name, []byte(c.Args().Get(1)), nil
}

func renderCallResult(c *cli.Context, ret any) error {
	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	if output.Format(flags.Output) == output.FormatTable {
		fmt.Printf("%v\n", ret)
		return nil
	}
	return formatter.Format(os.Stdout, ret)
}
