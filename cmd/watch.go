package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/cli"
	"github.com/grovetools/vdd/errors"
)

// NewWatchCmd returns the command that prints topology change events.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print topology changes made by other clients",
		Long: `Print every topology the driver broadcasts until interrupted.

Each change is printed as one line of JSON. Changes made by this process are
never echoed back by the driver.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, _, err := cli.Connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			logger := cli.GetLogger(cmd, "vdd-watch")

			enc := json.NewEncoder(cmd.OutOrStdout())
			for ev := range client.ReceiveEvents(ctx) {
				if ev.Err != nil {
					if errors.Is(ev.Err, errors.ErrCodeEventsLagged) {
						skipped, _ := errors.Detail(ev.Err, "skipped")
						logger.WithField("skipped", skipped).Warn("Missed events")
						continue
					}
					return ev.Err
				}
				if err := enc.Encode(ev.Monitors); err != nil {
					return fmt.Errorf("failed to write event: %w", err)
				}
			}
			return nil
		},
	}
}
