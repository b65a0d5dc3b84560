package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"umservice/internal/api"
	"umservice/internal/batch"
	"umservice/internal/config"
	"umservice/internal/convert"
)

type convertFlags struct {
	output       string
	removeSource bool
	noMetadata   bool
	overwrite    bool
	skipNoop     bool
	namingFormat string
	direct       bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <files or directories...>",
		Short: "Convert encrypted audio files",
		Long: "Convert encrypted audio files to their decoded form. Directories are\n" +
			"scanned for supported files. Batches are routed through the background\n" +
			"service when one is available (or can be started); otherwise the\n" +
			"conversion runs in this process.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, ctx, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory for converted files")
	cmd.Flags().BoolVar(&flags.removeSource, "remove-source", false, "Delete source files after successful conversion")
	cmd.Flags().BoolVar(&flags.noMetadata, "no-metadata", false, "Skip metadata updates on converted files")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Overwrite existing output files")
	cmd.Flags().BoolVar(&flags.skipNoop, "skip-noop", false, "Skip files that are already decoded")
	cmd.Flags().StringVar(&flags.namingFormat, "naming-format", "", "Output naming format (auto, title-artist, artist-title, original)")
	cmd.Flags().BoolVar(&flags.direct, "direct", false, "Convert in this process without contacting the service")

	return cmd
}

func runConvert(cmd *cobra.Command, ctx *commandContext, flags *convertFlags, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	tasks, err := collectTasks(args, flags.output)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no supported files found (supported: %s)", strings.Join(convert.SupportedExtensions(), ", "))
	}

	opts := optionsFromConfig(cfg, cmd, flags)

	logger, err := ctx.stderrLogger()
	if err != nil {
		return err
	}

	runCfg := *cfg
	if endpoint := strings.TrimSpace(ctx.endpoint()); endpoint != "" {
		applyEndpoint(&runCfg, endpoint)
	}
	if flags.output != "" {
		runCfg.Processing.OutputDir = flags.output
	}

	executable := ""
	if flags.direct {
		// Forces the in-process path regardless of batch size.
		runCfg.Client.SessionMinBatch = len(tasks) + 1
	} else {
		executable, err = os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warn: cannot resolve own executable, spawning disabled: %v\n", err)
			executable = ""
		}
	}

	runner := api.NewRunner(&runCfg, executable, logger)

	var bar *progressbar.ProgressBar
	if stderrIsTerminal() {
		bar = progressbar.NewOptions(len(tasks),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	outcome, err := runner.RunBatch(cmd.Context(), tasks, opts, func(processed, total int) {
		if bar != nil {
			_ = bar.Set(processed)
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	printConvertSummary(cmd, outcome)
	if outcome.Response.SuccessCount == 0 && outcome.Response.FailedCount > 0 {
		return fmt.Errorf("all %d files failed", outcome.Response.FailedCount)
	}
	return nil
}

// collectTasks expands the argument list: directories are walked for
// supported files, explicit file arguments are taken as-is so conversion
// errors surface per file.
func collectTasks(args []string, outputDir string) ([]batch.FileTask, error) {
	var tasks []batch.FileTask
	seen := map[string]struct{}{}

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		task := batch.FileTask{InputPath: path}
		if outputDir != "" {
			task.OutputPath = outputDir
		}
		tasks = append(tasks, task)
	}

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			add(abs)
			continue
		}
		walkErr := filepath.WalkDir(abs, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			if convert.IsSupported(path) {
				add(path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("scan %s: %w", abs, walkErr)
		}
	}
	return tasks, nil
}

// optionsFromConfig seeds options from the config file and applies only the
// flags the user actually set.
func optionsFromConfig(cfg *config.Config, cmd *cobra.Command, flags *convertFlags) batch.Options {
	opts := batch.Options{
		RemoveSource:    cfg.Processing.RemoveSource,
		UpdateMetadata:  cfg.Processing.UpdateMetadata,
		OverwriteOutput: cfg.Processing.OverwriteOutput,
		SkipNoop:        cfg.Processing.SkipNoop,
		NamingFormat:    cfg.Processing.NamingFormat,
	}
	if cmd.Flags().Changed("remove-source") {
		opts.RemoveSource = flags.removeSource
	}
	if cmd.Flags().Changed("no-metadata") {
		opts.UpdateMetadata = !flags.noMetadata
	}
	if cmd.Flags().Changed("overwrite") {
		opts.OverwriteOutput = flags.overwrite
	}
	if cmd.Flags().Changed("skip-noop") {
		opts.SkipNoop = flags.skipNoop
	}
	if cmd.Flags().Changed("naming-format") {
		opts.NamingFormat = flags.namingFormat
	}
	return opts
}

func printConvertSummary(cmd *cobra.Command, outcome *api.Outcome) {
	resp := outcome.Response
	for _, result := range resp.Results {
		if result.Success {
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %s\n", result.InputPath, result.Error)
	}
	mode := "service session"
	if outcome.Mode == api.ModeOneShot {
		mode = "one-shot"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "converted %d/%d files in %dms (%s)\n",
		resp.SuccessCount, resp.TotalFiles, resp.TotalTime, mode)
	for _, result := range resp.Results {
		if result.Success && result.OutputPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s\n", result.InputPath, result.OutputPath)
		}
	}
}
