package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/grovetools/vdd/cli"
	"github.com/grovetools/vdd/internal/daemon/collector"
	"github.com/grovetools/vdd/internal/daemon/engine"
	"github.com/grovetools/vdd/internal/daemon/pidfile"
	"github.com/grovetools/vdd/internal/daemon/server"
	"github.com/grovetools/vdd/internal/daemon/store"
	"github.com/grovetools/vdd/pkg/persist"
)

// NewServeCmd returns the command that runs a driver endpoint.
func NewServeCmd() *cobra.Command {
	var noPersist bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a driver endpoint in the foreground",
		Long: `Serve the driver pipe until interrupted.

The server keeps the monitor topology, answers state requests and sends
every change to all other connected clients. Unless disabled, the persisted
topology is applied at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cli.GetLogger(cmd, "vdd-serve")
			pipe := cfg.PipeName

			if err := pidfile.Acquire(pipe); err != nil {
				return err
			}
			defer func() {
				if err := pidfile.Release(pipe); err != nil {
					logger.WithError(err).Error("Failed to release pidfile")
				}
			}()

			st := store.New(cfg.Server.EventBuffer, logger)
			eng := engine.New(st, logger)

			if *cfg.Server.LoadPersisted && !noPersist {
				source, err := persist.FromConfig(cfg.Persist)
				if err != nil {
					return err
				}
				eng.Register(collector.NewPersistCollector(source, cfg.Persist.Watch, cfg.Persist.Debounce.Duration))
			}

			srv := server.New(eng, logger, server.WithWriteStall(cfg.Server.WriteStall.Duration))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				eng.Start(ctx)
				return nil
			})
			g.Go(func() error {
				return srv.ListenAndServe(ctx, pipe)
			})

			logger.WithField("pid", os.Getpid()).WithField("pipe", pipe).Info("Starting driver")
			<-ctx.Done()
			logger.Info("Received stop signal")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Server shutdown error")
			}
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "Do not apply the persisted topology")
	return cmd
}
