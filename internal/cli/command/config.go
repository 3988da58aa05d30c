package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/raftfleet/raftfleet/internal/cli/config"
	"github.com/raftfleet/raftfleet/internal/cli/output"
)

// ConfigCommand returns the "config" subcommand group, managing
// raftfleetctl's own local configuration file.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage raftfleetctl's local configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "show the local configuration",
				Action: configShow,
			},
			{
				Name:      "set",
				Usage:     "set a default value (default-server, default-output)",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := cliconfig.Load("")
	if err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) != output.FormatTable {
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, cfg)
	}

	fmt.Printf("Config file:      %s\n", cliconfig.DefaultConfigPath())
	fmt.Printf("Default server:   %s\n", cfg.DefaultServer)
	fmt.Printf("Default output:   %s\n", cfg.DefaultOutput)
	fmt.Printf("Current connection: %s\n", cfg.CurrentConnection)
	return nil
}

func configSet(c *cli.Context) error {
	key := c.Args().Get(0)
	value := c.Args().Get(1)
	if key == "" || value == "" {
		return fmt.Errorf("usage: config set KEY VALUE")
	}

	cfg, err := cliconfig.Load("")
	if err != nil {
		return err
	}

	switch key {
	case "default-server":
		cfg.DefaultServer = value
	case "default-output":
		cfg.DefaultOutput = value
	default:
		return fmt.Errorf("unknown key %q (want default-server or default-output)", key)
	}

	if err := cliconfig.Save(cfg, ""); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}
