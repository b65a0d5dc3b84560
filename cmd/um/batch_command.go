package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"umservice/internal/api"
	"umservice/internal/batch"
)

// newBatchCommand implements the one-shot subprocess protocol: exactly one
// JSON request on stdin, exactly one JSON response on stdout. Diagnostics go
// to stderr so stdout stays machine-readable.
func newBatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Run one batch from a JSON request on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var req batch.Request
			decoder := json.NewDecoder(cmd.InOrStdin())
			if err := decoder.Decode(&req); err != nil {
				return fmt.Errorf("decode batch request: %w", err)
			}
			if len(req.Files) == 0 {
				return fmt.Errorf("batch request contains no files")
			}

			logger, err := ctx.stderrLogger()
			if err != nil {
				return err
			}

			// Always the in-process path: this command IS the fallback
			// subprocess, it must never call back into the service.
			runCfg := *cfg
			runCfg.Client.SessionMinBatch = len(req.Files) + 1

			runner := api.NewRunner(&runCfg, "", logger)
			outcome, err := runner.RunBatch(cmd.Context(), req.Files, req.Options, nil)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			if err := encoder.Encode(outcome.Response); err != nil {
				return fmt.Errorf("encode batch response: %w", err)
			}
			return nil
		},
	}
}
