package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/cli"
	"github.com/grovetools/vdd/logging"
	"github.com/grovetools/vdd/pkg/persist"
)

// NewPersistCmd returns the persist command group.
func NewPersistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Inspect or update the persisted monitors",
		Long: `The persisted monitors are applied by the driver when it starts.

Examples:
  # Save what the driver currently has
  vdd persist save

  # Save a topology from a file without contacting the driver
  vdd persist save --from monitors.json

  # Show what is stored
  vdd persist show`,
	}

	cmd.AddCommand(newPersistShowCmd(), newPersistSaveCmd())
	return cmd
}

func newPersistShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := persist.FromConfig(cfg.Persist)
			if err != nil {
				return err
			}
			monitors, err := store.Load()
			if err != nil {
				return err
			}
			return writeTopology(cmd.OutOrStdout(), monitors, cli.GetOptions(cmd).JSONOutput)
		},
	}
}

func newPersistSaveCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Persist the driver's monitors or a topology file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := persist.FromConfig(cfg.Persist)
			if err != nil {
				return err
			}

			if from != "" {
				monitors, err := readTopology(cmd.InOrStdin(), from)
				if err != nil {
					return err
				}
				if err := store.Save(monitors); err != nil {
					return err
				}
				saved(cmd, len(monitors), store.Location())
				return nil
			}

			client, _, err := cli.Connect(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			monitors, err := client.RequestState(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Persist(monitors); err != nil {
				return err
			}
			saved(cmd, len(monitors), store.Location())
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Read the topology from a JSON file (- for stdin)")
	return cmd
}

func saved(cmd *cobra.Command, n int, location string) {
	out := logging.NewPretty(cmd.OutOrStdout())
	out.Success(fmt.Sprintf("Saved %d monitor(s)", n))
	out.Path("Location", location)
}
