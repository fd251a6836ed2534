// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs independent tasks with a bounded number of goroutines
type WorkerPool struct {
	workerCount int
}

// Run executes all tasks and returns the first error encountered.
// The context passed to the tasks is cancelled on the first failure.
func (wp *WorkerPool) Run(ctx context.Context, tasks ...func(context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workerCount)

	for _, task := range tasks {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return task(groupCtx)
		})
	}

	return g.Wait()
}

// RunAll executes every task regardless of failures in the others.
// The returned slice is aligned with tasks; a nil entry means the task succeeded.
// Tasks not yet started when ctx is cancelled report ctx.Err() without running.
func (wp *WorkerPool) RunAll(ctx context.Context, tasks ...func(context.Context) error) []error {
	if len(tasks) == 0 {
		return nil
	}

	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(wp.workerCount)

	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = task(ctx)
			return nil
		})
	}

	_ = g.Wait()
	return errs
}

// Failed returns the non-nil errors from a RunAll result
func Failed(errs []error) []error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}
