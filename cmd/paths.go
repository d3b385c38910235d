package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/cli"
	"github.com/grovetools/vdd/internal/daemon/pidfile"
	"github.com/grovetools/vdd/pkg/paths"
	"github.com/grovetools/vdd/pkg/persist"
	"github.com/grovetools/vdd/pkg/transport"
)

// PathsOutput lists the locations vdd reads and writes.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	StateDir   string `json:"state_dir"`
	RuntimeDir string `json:"runtime_dir"`
	LogDir     string `json:"log_dir"`
	Pipe       string `json:"pipe"`
	PidFile    string `json:"pid_file"`
	Persist    string `json:"persist"`
}

// NewPathsCmd returns the command that prints vdd's paths as JSON.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by vdd",
		Long: `Print the paths used by vdd as JSON.

- config_dir: vdd.yml or vdd.toml
- state_dir: persisted monitors and logs
- runtime_dir: pipes and pidfiles on Unix
- pipe: the address of the configured pipe
- persist: where the persisted monitors live`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := persist.FromConfig(cfg.Persist)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				StateDir:   paths.StateDir(),
				RuntimeDir: paths.RuntimeDir(),
				LogDir:     paths.LogDir(),
				Pipe:       transport.Address(cfg.PipeName),
				PidFile:    pidfile.Path(cfg.PipeName),
				Persist:    store.Location(),
			})
		},
	}
}
