package batch

import "context"

// FileTask is one file's conversion request within a batch.
type FileTask struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path,omitempty"`
}

// Options are the processing options shared by every task in a batch.
type Options struct {
	RemoveSource    bool   `json:"remove_source"`
	UpdateMetadata  bool   `json:"update_metadata"`
	OverwriteOutput bool   `json:"overwrite_output"`
	SkipNoop        bool   `json:"skip_noop"`
	NamingFormat    string `json:"naming_format"`
}

// Result is the outcome of a single task.
type Result struct {
	InputPath   string `json:"input_path"`
	OutputPath  string `json:"output_path,omitempty"`
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	ProcessTime int64  `json:"process_time_ms"`
}

// Request is a full batch submission: the queue plus shared options.
type Request struct {
	Files   []FileTask `json:"files"`
	Options Options    `json:"options"`
}

// Response is the aggregated batch outcome. Both the session path and the
// one-shot path produce this exact shape.
type Response struct {
	Success      bool     `json:"success"`
	Results      []Result `json:"results"`
	TotalFiles   int      `json:"total_files"`
	SuccessCount int      `json:"success_count"`
	FailedCount  int      `json:"failed_count"`
	TotalTime    int64    `json:"total_time_ms"`
}

// Converter performs one file conversion. Implementations live outside this
// package; the scheduler only needs the contract.
type Converter interface {
	Convert(ctx context.Context, task FileTask, opts Options) (Result, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, task FileTask, opts Options) (Result, error)

func (f ConverterFunc) Convert(ctx context.Context, task FileTask, opts Options) (Result, error) {
	return f(ctx, task, opts)
}
