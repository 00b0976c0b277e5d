package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the table worker pool.
type WorkerPoolConfig struct {
	Workers int // Tables processed concurrently (default: 1)
}

// WorkerPool runs per-table work with bounded parallelism.
// With a single worker items run one at a time in submission order.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// Workers returns the effective concurrency.
func (p *WorkerPool) Workers() int {
	return p.config.Workers
}

// WorkItem is a unit of work, usually one table.
type WorkItem[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// WorkResult is the outcome of a work item.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// logProgress returns an onProgress callback that logs each completion at debug level.
func logProgress(logger *zap.Logger, msg string) func(completed, total int) {
	return func(completed, total int) {
		logger.Debug(msg, zap.Int("completed", completed), zap.Int("total", total))
	}
}

// Process executes all items and returns their results in submission order.
// A failing item does not stop the others. Items not yet started when ctx is
// cancelled are reported with ctx.Err() and never executed.
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))
	jobs := make(chan int)

	workers := min(pool.config.Workers, len(items))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	done := func() {
		if onProgress == nil {
			return
		}
		mu.Lock()
		completed++
		n := completed
		onProgress(n, len(items))
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				item := items[i]
				if err := ctx.Err(); err != nil {
					results[i] = WorkResult[T]{ID: item.ID, Err: err}
					done()
					continue
				}
				result, err := item.Execute(ctx)
				results[i] = WorkResult[T]{ID: item.ID, Result: result, Err: err}
				done()
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	pool.logger.Debug("Processed work items",
		zap.Int("items", len(items)),
		zap.Int("workers", workers))

	return results
}
