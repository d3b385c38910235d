package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/cli"
	"github.com/grovetools/vdd/errors"
	"github.com/grovetools/vdd/logging"
	"github.com/grovetools/vdd/pkg/models"
	"github.com/grovetools/vdd/schema"
)

// NewStateCmd returns the command that prints the driver's topology.
func NewStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the driver's monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := cli.Connect(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			monitors, err := client.RequestState(cmd.Context())
			if err != nil {
				return err
			}
			return writeTopology(cmd.OutOrStdout(), monitors, cli.GetOptions(cmd).JSONOutput)
		},
	}
}

// NewNotifyCmd returns the command that replaces the driver's topology
// with the contents of a JSON file.
func NewNotifyCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "notify <file|->",
		Short: "Send a topology to the driver",
		Long: `Read a topology from a JSON file, validate it and send it to the driver.

The file holds an array of monitors in the same form vdd state --json
prints. Use - to read from stdin.

Examples:
  vdd state --json > monitors.json
  vdd notify monitors.json --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			monitors, err := readTopology(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			dc, err := cli.ConnectDriver(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer dc.Close()

			if err := dc.SetMonitors(monitors); err != nil {
				return err
			}
			if err := dc.Notify(cmd.Context()); err != nil {
				return err
			}
			if save {
				if err := dc.Persist(); err != nil {
					return err
				}
			}
			logging.NewPretty(cmd.OutOrStdout()).Success(fmt.Sprintf("Sent %d monitor(s)", len(monitors)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Also persist the topology")
	return cmd
}

// readTopology reads, schema-checks and decodes a topology document.
func readTopology(stdin io.Reader, path string) (models.Topology, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read topology").
			WithDetail("path", path)
	}

	v, err := schema.NewValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load topology schema")
	}
	if err := v.ValidateBytes(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "topology does not match the schema").
			WithDetail("path", path)
	}

	var monitors models.Topology
	if err := json.Unmarshal(raw, &monitors); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to decode topology").
			WithDetail("path", path)
	}
	if err := models.ValidateTopology(monitors); err != nil {
		return nil, err
	}
	return monitors, nil
}

// NewRemoveCmd returns the command that removes monitors by id or name.
func NewRemoveCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "remove [id|name]...",
		Short: "Remove monitors from the driver",
		Long: `Remove monitors by id or name. Names are matched before ids.

Examples:
  vdd remove 1 "Side panel"
  vdd remove --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New(errors.ErrCodeInvalidInput, "give monitors to remove or --all, not both")
			}

			if all {
				client, _, err := cli.Connect(cmd.Context(), cmd)
				if err != nil {
					return err
				}
				defer client.Close()
				return client.RemoveAll(cmd.Context())
			}

			dc, err := cli.ConnectDriver(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer dc.Close()

			if err := dc.RemoveQuery(args); err != nil {
				return err
			}
			return dc.Notify(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every monitor")
	return cmd
}

// NewEnableCmd returns the enable command, or disable when enabled is
// false.
func NewEnableCmd(enabled bool) *cobra.Command {
	use, short := "enable", "Enable monitors"
	if !enabled {
		use, short = "disable", "Disable monitors"
	}

	return &cobra.Command{
		Use:   use + " <id|name>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := cli.ConnectDriver(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer dc.Close()

			if err := dc.SetEnabledQuery(args, enabled); err != nil {
				return err
			}
			return dc.Notify(cmd.Context())
		},
	}
}
