package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"umservice/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := ctx.endpoint()
			client, err := ipc.Dial(endpoint, ctx.connectTimeout())
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "service not running (endpoint %s)\n", endpoint)
				return nil
			}
			defer client.Close()

			pong, err := client.Ping()
			if err != nil {
				return fmt.Errorf("service answered the connection but not the ping: %w", err)
			}

			rows := [][]string{
				{"Endpoint", endpoint},
				{"PID", strconv.Itoa(pong.PID)},
				{"Active sessions", strconv.Itoa(pong.ActiveSessions)},
				{"Uptime", formatUptime(pong.UptimeSeconds)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func formatUptime(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return strconv.Itoa(seconds) + "s"
	}
	return d.Truncate(time.Second).String()
}
