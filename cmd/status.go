package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/cli"
	"github.com/grovetools/vdd/internal/daemon/pidfile"
	"github.com/grovetools/vdd/logging"
	"github.com/grovetools/vdd/pkg/transport"
)

// StatusOutput is the JSON form of vdd status.
type StatusOutput struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Pipe    string `json:"pipe"`
	Address string `json:"address"`
}

// NewStatusCmd returns the command that reports whether a local driver
// endpoint is running.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether a driver endpoint is running",
		Long: `Check the pidfile written by vdd serve for the configured pipe.

The command exits non-zero when no endpoint is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			running, pid, err := pidfile.IsRunning(cfg.PipeName)
			if err != nil {
				return err
			}

			out := StatusOutput{
				Running: running,
				PID:     pid,
				Pipe:    cfg.PipeName,
				Address: transport.Address(cfg.PipeName),
			}
			if cli.GetOptions(cmd).JSONOutput {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else if running {
				pretty := logging.NewPretty(cmd.OutOrStdout())
				pretty.Success("Running")
				pretty.Field("PID", pid)
				pretty.Path("Pipe", out.Address)
			} else {
				logging.NewPretty(cmd.OutOrStdout()).Warn("Stopped")
			}

			if !running {
				return cli.ErrSilent
			}
			return nil
		},
	}
}
