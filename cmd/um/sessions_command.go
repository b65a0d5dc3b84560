package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"umservice/internal/ipc"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List live sessions on the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				list, err := client.ListSessions()
				if err != nil {
					return err
				}
				if len(list.Sessions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no live sessions")
					return nil
				}

				rows := make([][]string, 0, len(list.Sessions))
				for _, sess := range list.Sessions {
					rows = append(rows, []string{
						sess.SessionID,
						sess.Status,
						fmt.Sprintf("%d/%d", sess.ProcessedFiles, sess.TotalFiles),
						time.Unix(sess.CreatedAtUnix, 0).Local().Format(time.DateTime),
					})
				}
				headers := []string{"Session", "Status", "Progress", "Created"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
				fmt.Fprintf(cmd.OutOrStdout(), "%s live session(s)\n", strconv.Itoa(len(list.Sessions)))
				return nil
			})
		},
	}
}
