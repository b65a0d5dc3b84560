package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"umservice/internal/api"
	"umservice/internal/batch"
	"umservice/internal/convert"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	flags := &convertFlags{}
	var settleFlag time.Duration

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory and convert new files as they arrive",
		Long: "Watch a directory for newly arriving supported files and convert them\n" +
			"with the same routing as `um convert`. Files are picked up once they\n" +
			"stop changing for the settle duration.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, flags, args[0], settleFlag)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory for converted files")
	cmd.Flags().BoolVar(&flags.removeSource, "remove-source", false, "Delete source files after successful conversion")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Overwrite existing output files")
	cmd.Flags().BoolVar(&flags.direct, "direct", false, "Convert in this process without contacting the service")
	cmd.Flags().DurationVar(&settleFlag, "settle", 2*time.Second, "How long a file must be quiet before conversion")

	return cmd
}

func runWatch(cmd *cobra.Command, ctx *commandContext, flags *convertFlags, dir string, settle time.Duration) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target is not a directory: %s", absDir)
	}
	if settle < 100*time.Millisecond {
		settle = 2 * time.Second
	}

	logger, err := ctx.stderrLogger()
	if err != nil {
		return err
	}

	runCfg := *cfg
	applyEndpoint(&runCfg, ctx.endpoint())
	if flags.output != "" {
		runCfg.Processing.OutputDir = flags.output
	}

	executable := ""
	if flags.direct {
		// Forces the in-process path for every flush.
		runCfg.Client.SessionMinBatch = 1 << 30
	} else if exe, exeErr := os.Executable(); exeErr == nil {
		executable = exe
	}
	opts := optionsFromConfig(cfg, cmd, flags)
	runner := api.NewRunner(&runCfg, executable, logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(absDir); err != nil {
		return fmt.Errorf("watch %s: %w", absDir, err)
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", absDir)

	// Last write per pending file; converted once quiet for the settle
	// window so half-copied files are not picked up.
	pending := map[string]time.Time{}
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-signalCtx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if convert.IsSupported(event.Name) {
				pending[event.Name] = time.Now()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
		case now := <-ticker.C:
			var ready []batch.FileTask
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				task := batch.FileTask{InputPath: path}
				if flags.output != "" {
					task.OutputPath = flags.output
				}
				ready = append(ready, task)
			}
			if len(ready) == 0 {
				continue
			}

			outcome, err := runner.RunBatch(signalCtx, ready, opts, nil)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "convert batch: %v\n", err)
				continue
			}
			for _, result := range outcome.Response.Results {
				if result.Success {
					fmt.Fprintf(cmd.OutOrStdout(), "converted %s -> %s\n", result.InputPath, result.OutputPath)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %s\n", result.InputPath, result.Error)
				}
			}
		}
	}
}
