package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/config"
)

// TaskRunner runs one task to completion. *Agent implements it.
type TaskRunner interface {
	Run(ctx context.Context, task string) (Result, error)
}

// BatchResult pairs a task with what running it produced.
type BatchResult struct {
	Task   string
	Result Result
	Err    error
}

// Batch distributes queued tasks to a pool of workers. Every task still runs
// its steps sequentially in its own tab.
type Batch struct {
	cfg    config.EngineConfig
	logger *zap.Logger
	runner TaskRunner
	wg     sync.WaitGroup
}

// NewBatch creates a batch over runner.
func NewBatch(cfg config.EngineConfig, logger *zap.Logger, runner TaskRunner) *Batch {
	return &Batch{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "batch")),
		runner: runner,
	}
}

// Start launches the worker pool. Workers consume tasks until the channel is
// closed and send one BatchResult per task.
func (b *Batch) Start(ctx context.Context, tasks <-chan string, results chan<- BatchResult) {
	concurrency := b.cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	b.logger.Info("Starting batch worker pool", zap.Int("concurrency", concurrency))

	for i := 0; i < concurrency; i++ {
		b.wg.Add(1)
		go b.runWorker(ctx, i+1, tasks, results)
	}
}

// Stop waits for all workers to drain the task channel.
func (b *Batch) Stop() {
	b.logger.Info("Stopping batch... waiting for workers to finish.")
	b.wg.Wait()
	b.logger.Info("Batch stopped gracefully.")
}

func (b *Batch) runWorker(ctx context.Context, workerID int, tasks <-chan string, results chan<- BatchResult) {
	defer b.wg.Done()
	logger := b.logger.With(zap.Int("worker_id", workerID))
	logger.Debug("Worker goroutine started")

	for task := range tasks {
		if ctx.Err() != nil {
			results <- BatchResult{Task: task, Err: ctx.Err()}
			continue
		}
		results <- b.process(ctx, task, logger)
	}

	logger.Debug("Task queue closed and drained, worker shutting down.")
}

func (b *Batch) process(ctx context.Context, task string, logger *zap.Logger) BatchResult {
	logger.Info("Processing task", zap.String("task", task))

	taskTimeout := b.cfg.DefaultTaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = 15 * time.Minute
	}
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	res, err := b.runner.Run(taskCtx, task)
	if err != nil {
		logger.Error("Task failed", zap.String("task", task), zap.Error(err))
	}
	return BatchResult{Task: task, Result: res, Err: err}
}
