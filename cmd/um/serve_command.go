package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"umservice/internal/daemonrun"
	"umservice/internal/logging"
)

// newServeCommand runs the service in the foreground. Detached launches from
// daemonctl invoke exactly this command, so spawned and manual services
// behave the same.
func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion service in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromOptions(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir, "umserviced.log")
			if err != nil {
				return err
			}

			return daemonrun.Run(signalCtx, cfg, ctx.endpoint(), logger)
		},
	}
}
