package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"umservice/internal/daemonctl"
)

func newStopDaemonCommand(ctx *commandContext) *cobra.Command {
	var timeoutFlag time.Duration

	cmd := &cobra.Command{
		Use:   "stop-daemon",
		Short: "Ask the service to shut down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := ctx.endpoint()
			err := daemonctl.RequestShutdown(endpoint, timeoutFlag)
			if errors.Is(err, daemonctl.ErrServiceNotRunning) {
				fmt.Fprintf(cmd.OutOrStdout(), "service not running (endpoint %s)\n", endpoint)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "service stopped")
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 15*time.Second, "How long to wait for the service to exit")
	return cmd
}
