package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/emigrid/internal/ctxlog"
)

// DefaultWorkers is used when a Compute caller passes a non-positive worker
// count.
const DefaultWorkers = 8

// Compute executes all tasks and returns their results in task order. It is
// the single execution point of a deferred batch: tasks run on a bounded
// worker pool, the first failure cancels the remaining work, and on any
// failure no partial results are returned. Nil tasks yield the zero T.
func Compute[T any](ctx context.Context, workers int, tasks []*Task[T]) ([]T, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Computing deferred task batch.", "tasks", len(tasks), "workers", workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))
	indices := make(chan int, len(tasks))
	for i := range tasks {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				t := tasks[i]
				if t == nil {
					continue
				}
				if runCtx.Err() != nil {
					errs[i] = fmt.Errorf("task %s: %w", t.Name, runCtx.Err())
					continue
				}
				v, err := t.Run(runCtx)
				if err != nil {
					errs[i] = fmt.Errorf("task %s: %w", t.Name, err)
					cancel()
					continue
				}
				results[i] = v
			}
		}()
	}
	wg.Wait()

	// Prefer the root cause over cancellation symptoms.
	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if firstErr == nil || errors.Is(firstErr, context.Canceled) && !errors.Is(err, context.Canceled) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	logger.Debug("Deferred task batch completed.", "tasks", len(tasks))
	return results, nil
}
