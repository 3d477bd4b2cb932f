// Package task models the deferred computations of the pipeline: cheap
// handles describing work (proxy weight reductions, gridded output saves)
// that is executed in parallel at a single, explicit Compute join point.
package task

import "context"

// Task is a named deferred computation producing a T.
type Task[T any] struct {
	// Name identifies the task in logs and error messages.
	Name string
	// Run performs the computation. It must respect ctx cancellation and
	// must not share mutable state with other tasks handed to the same
	// Compute call.
	Run func(ctx context.Context) (T, error)
}

// New returns a deferred task.
func New[T any](name string, run func(ctx context.Context) (T, error)) *Task[T] {
	return &Task[T]{Name: name, Run: run}
}

// FromValue returns a task that immediately yields v.
func FromValue[T any](name string, v T) *Task[T] {
	return New(name, func(context.Context) (T, error) { return v, nil })
}
