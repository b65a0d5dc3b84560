package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"umservice/internal/batch"
	"umservice/internal/logging"
	"umservice/internal/naming"
)

// Processor converts one file per call. It is stateless apart from its
// defaults and safe for concurrent use by the batch scheduler.
type Processor struct {
	logger *slog.Logger

	// defaultOutputDir receives outputs for tasks that do not name their own
	// destination. Empty means next to the source file.
	defaultOutputDir string
}

// NewProcessor builds a Processor writing to defaultOutputDir unless the
// task overrides it.
func NewProcessor(defaultOutputDir string, logger *slog.Logger) *Processor {
	return &Processor{
		logger:           logging.NewComponentLogger(logger, "convert"),
		defaultOutputDir: defaultOutputDir,
	}
}

// Convert implements batch.Converter. Failures are reported per task; the
// returned error carries the same text the scheduler records in the result.
func (p *Processor) Convert(ctx context.Context, task batch.FileTask, opts batch.Options) (batch.Result, error) {
	result := batch.Result{InputPath: task.InputPath}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	format, err := naming.ParseFormat(opts.NamingFormat)
	if err != nil {
		return result, err
	}

	info, err := os.Stat(task.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, fmt.Errorf("input file does not exist: %s", task.InputPath)
		}
		return result, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("input is a directory: %s", task.InputPath)
	}
	if !IsSupported(task.InputPath) {
		return result, fmt.Errorf("unsupported format %q", filepath.Ext(task.InputPath))
	}

	source, err := os.Open(task.InputPath)
	if err != nil {
		return result, fmt.Errorf("open input: %w", err)
	}
	defer source.Close()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(source, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return result, fmt.Errorf("read input: %w", err)
	}
	header = header[:n]

	audioExt := DetectAudioExt(header)
	if audioExt != "" && opts.SkipNoop {
		p.logger.Debug("skipping already decoded file",
			logging.String("input", task.InputPath),
			logging.String("detected", audioExt))
		result.Success = true
		result.Message = "already decoded, skipped"
		return result, nil
	}
	if audioExt == "" {
		// Encrypted payloads cannot be sniffed; flac is the decode target
		// for every supported container.
		audioExt = ".flac"
	}

	outputPath, err := p.resolveOutput(task, format, audioExt)
	if err != nil {
		return result, err
	}
	if _, err := os.Stat(outputPath); err == nil && !opts.OverwriteOutput {
		return result, fmt.Errorf("output already exists: %s", outputPath)
	}

	if err := p.writeOutput(source, header, outputPath); err != nil {
		return result, err
	}
	result.OutputPath = outputPath
	result.Success = true

	if opts.RemoveSource {
		if err := os.Remove(task.InputPath); err != nil {
			p.logger.Warn("failed to remove source file",
				logging.String("input", task.InputPath),
				logging.Error(err))
			result.Message = fmt.Sprintf("converted; failed to remove source: %v", err)
			return result, nil
		}
	}

	p.logger.Info("converted file",
		logging.String("input", task.InputPath),
		logging.String("output", outputPath))
	return result, nil
}

// resolveOutput picks the destination path. A task-level OutputPath naming an
// existing directory receives the renamed file; any other non-empty value is
// used verbatim.
func (p *Processor) resolveOutput(task batch.FileTask, format naming.Format, audioExt string) (string, error) {
	name := naming.OutputName(format, filepath.Base(task.InputPath), audioExt)

	switch {
	case task.OutputPath == "":
		dir := p.defaultOutputDir
		if dir == "" {
			dir = filepath.Dir(task.InputPath)
		}
		return filepath.Join(dir, name), nil
	default:
		info, err := os.Stat(task.OutputPath)
		if err == nil && info.IsDir() {
			return filepath.Join(task.OutputPath, name), nil
		}
		return task.OutputPath, nil
	}
}

// writeOutput streams header+rest to a temp file in the destination
// directory and renames it into place so readers never observe a partial
// file.
func (p *Processor) writeOutput(source io.Reader, header []byte, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".um-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(header); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := io.Copy(tmp, source); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}
