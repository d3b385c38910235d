// Package cli holds the pieces shared by every vdd subcommand: standard
// flags, config and logger setup, error reporting and styled help.
package cli

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/config"
	"github.com/grovetools/vdd/logging"
	"github.com/grovetools/vdd/pkg/ipc"
)

// CommandOptions holds the standard flags.
type CommandOptions struct {
	ConfigFile string
	Pipe       string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command with the standard vdd flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to vdd.yml or vdd.toml")
	cmd.PersistentFlags().StringP("pipe", "p", "", "Driver pipe name (overrides pipe_name)")

	SetStyledHelp(cmd)

	return cmd
}

// GetOptions extracts the standard flags from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	pipe, _ := cmd.Flags().GetString("pipe")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Pipe:       pipe,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// InitConfig returns the config file to use: the --config flag if set,
// otherwise whatever config.FindConfigFile locates. An empty path means
// no file exists and defaults apply.
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	path, err := config.FindConfigFile()
	if err != nil {
		return "", nil
	}
	return path, nil
}

// LoadConfig loads the configuration selected by the command's flags and
// applies the --pipe override.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := GetOptions(cmd)

	path, err := InitConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if opts.Pipe != "" {
		cfg.PipeName = opts.Pipe
	}
	return cfg, nil
}

// GetLogger returns the component logger adjusted for --verbose and --json.
// Verbose logging always goes to stderr.
func GetLogger(cmd *cobra.Command, component string) *logrus.Entry {
	entry := logging.NewLogger(component)
	logger := entry.Logger

	opts := GetOptions(cmd)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetOutput(logging.GetGlobalOutput())
	}
	if opts.JSONOutput {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return entry
}

// Connect loads the configuration and connects a client to the driver.
func Connect(ctx context.Context, cmd *cobra.Command) (*ipc.Client, *config.Config, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts, err := ipc.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, ipc.WithLogger(GetLogger(cmd, "vdd-cli")))

	client, err := ipc.ConnectTo(ctx, cfg.PipeName, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// ConnectDriver loads the configuration and opens a DriverClient, which
// fetches the current topology before returning.
func ConnectDriver(ctx context.Context, cmd *cobra.Command) (*ipc.DriverClient, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts, err := ipc.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, ipc.WithLogger(GetLogger(cmd, "vdd-cli")))
	return ipc.NewDriverClientWith(ctx, cfg.PipeName, opts...)
}

// ShutdownTimeout bounds graceful shutdown of long-running commands.
const ShutdownTimeout = 5 * time.Second

// ErrSilent makes Execute exit non-zero without printing anything. The
// command has already reported the outcome.
var ErrSilent = stderrors.New("exit status 1")

// Execute runs root and reports any error through an ErrorHandler. It
// returns the process exit code.
func Execute(root *cobra.Command) int {
	ApplyStyledHelpRecursive(root)
	if err := root.Execute(); err != nil {
		if stderrors.Is(err, ErrSilent) {
			return 1
		}
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		NewErrorHandler(verbose).WithOutput(root.ErrOrStderr()).Handle(err)
		return 1
	}
	return 0
}
