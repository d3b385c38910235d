// Package cmd implements the vdd command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/cli"
)

// NewRootCmd returns the vdd root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"vdd",
		"Virtual display driver control",
	)
	root.Long = `Control a virtual display driver over its named pipe.

vdd serve runs a driver endpoint that keeps the monitor topology and
broadcasts every change to the other connected clients. The remaining
commands are clients of a running driver.

Examples:
  # Run a driver endpoint in the foreground
  vdd serve

  # Show the driver's monitors
  vdd state

  # Replace the topology from a file
  vdd notify monitors.json`

	root.AddCommand(
		NewServeCmd(),
		NewStatusCmd(),
		NewStateCmd(),
		NewNotifyCmd(),
		NewRemoveCmd(),
		NewEnableCmd(true),
		NewEnableCmd(false),
		NewWatchCmd(),
		NewPersistCmd(),
		NewSchemaCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		cli.NewVersionCommand("vdd"),
	)
	return root
}
