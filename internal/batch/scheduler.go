package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"umservice/internal/logging"
)

// Scheduler runs batches on a bounded worker pool.
type Scheduler struct {
	conv       Converter
	maxWorkers int
	logger     *slog.Logger
}

type taskWithIndex struct {
	index int
	task  FileTask
}

type resultWithIndex struct {
	index  int
	result Result
}

// NewScheduler constructs a scheduler. maxWorkers bounds pool size; values
// below one fall back to a single worker.
func NewScheduler(conv Converter, maxWorkers int, logger *slog.Logger) *Scheduler {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Scheduler{
		conv:       conv,
		maxWorkers: maxWorkers,
		logger:     logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Run executes every task in the request and returns the aggregated response.
// onProgress, when non-nil, is invoked after each task resolves with the
// running processed count; processed is monotonically non-decreasing and
// never exceeds the total. Cancellation via ctx stops dispatch of new tasks;
// tasks already handed to a worker finish, undispatched tasks are recorded
// as failed with a cancellation error.
func (s *Scheduler) Run(ctx context.Context, req *Request, onProgress func(processed, total int)) *Response {
	start := time.Now()
	total := len(req.Files)

	resp := &Response{
		Results:    make([]Result, total),
		TotalFiles: total,
	}
	if total == 0 {
		resp.Success = true
		resp.TotalTime = time.Since(start).Milliseconds()
		return resp
	}

	workers := s.workerCount(total)
	s.logger.Info("batch started",
		logging.Int("file_count", total),
		logging.Int("workers", workers))

	taskCh := make(chan taskWithIndex, total)
	resultCh := make(chan resultWithIndex, total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, req.Options, taskCh, resultCh)
	}

	for i, task := range req.Files {
		taskCh <- taskWithIndex{index: i, task: task}
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	processed := 0
	for item := range resultCh {
		resp.Results[item.index] = item.result
		if item.result.Success {
			resp.SuccessCount++
		} else {
			resp.FailedCount++
		}
		processed++
		if onProgress != nil {
			onProgress(processed, total)
		}
	}

	resp.Success = resp.FailedCount == 0
	resp.TotalTime = time.Since(start).Milliseconds()

	s.logger.Info("batch finished",
		logging.Int("success_count", resp.SuccessCount),
		logging.Int("failed_count", resp.FailedCount),
		logging.Int64("total_time_ms", resp.TotalTime))

	return resp
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, opts Options, taskCh <-chan taskWithIndex, resultCh chan<- resultWithIndex) {
	defer wg.Done()

	for item := range taskCh {
		// Cooperative cancellation: checked between tasks only.
		if ctx.Err() != nil {
			resultCh <- resultWithIndex{
				index: item.index,
				result: Result{
					InputPath: item.task.InputPath,
					Error:     "canceled before processing",
				},
			}
			continue
		}
		resultCh <- resultWithIndex{index: item.index, result: s.convertOne(ctx, item.task, opts)}
	}
}

// convertOne isolates a single task: converter errors and panics become a
// failed result, never a pool teardown.
func (s *Scheduler) convertOne(ctx context.Context, task FileTask, opts Options) (out Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Result{
				InputPath: task.InputPath,
				Error:     fmt.Sprintf("conversion panic: %v", r),
			}
		}
		if out.InputPath == "" {
			out.InputPath = task.InputPath
		}
		if out.ProcessTime == 0 {
			out.ProcessTime = time.Since(start).Milliseconds()
		}
	}()

	result, err := s.conv.Convert(ctx, task, opts)
	if err != nil {
		s.logger.Warn("task failed",
			logging.String("input", task.InputPath),
			logging.Error(err))
		result.Success = false
		if result.Error == "" {
			result.Error = err.Error()
		}
	}
	return result
}

func (s *Scheduler) workerCount(fileCount int) int {
	workers := runtime.NumCPU()
	switch {
	case fileCount >= 20:
		workers *= 2
	case fileCount <= 2:
		workers = fileCount
	}
	if workers > s.maxWorkers {
		workers = s.maxWorkers
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
