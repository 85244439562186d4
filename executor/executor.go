// Package executor runs units of work on reusable worker goroutines.
//
// WorkerPool is a bounded pool whose workers each own one multitenant.Store for their
// whole life. Work submitted to a bare pool never sees the submitter's identity. Wrap
// the pool with Propagating to carry the submitter's identity into every unit of work
// and restore the worker's own identity afterwards.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Runnable is fire-and-forget work.
type Runnable func(ctx context.Context)

// Task is work producing a result.
type Task func(ctx context.Context) (any, error)

// Executor is the facility that runs work asynchronously.
type Executor interface {
	// Execute schedules r and returns once it is admitted.
	Execute(ctx context.Context, r Runnable) error
	// Submit schedules task and returns a future for its result.
	Submit(ctx context.Context, task Task) (*Future, error)
	// InvokeAll runs every task and waits for all of them. When ctx is done first the
	// remaining futures are cancelled and ctx.Err() is returned with the futures.
	InvokeAll(ctx context.Context, tasks []Task) ([]*Future, error)
	// InvokeAny returns the result of the first task to succeed and cancels the rest.
	// A positive timeout bounds the wait and yields ErrTimeout when exceeded.
	InvokeAny(ctx context.Context, tasks []Task, timeout time.Duration) (any, error)
	// Shutdown stops admitting work and waits for admitted work to finish. When ctx is
	// done first, running work is cancelled and ctx.Err() is returned.
	Shutdown(ctx context.Context) error
}

var (
	// ErrPoolClosed is returned when work is submitted after Shutdown.
	ErrPoolClosed = errors.New("executor: pool closed")
	// ErrQueueFull is returned when the queue is full and the pool rejects instead of blocking.
	ErrQueueFull = errors.New("executor: queue full")
	// ErrTimeout is returned by InvokeAny when no task succeeded in time.
	ErrTimeout = errors.New("executor: timed out waiting for a task")
	// ErrCancelled is the result of a future cancelled before its task completed.
	ErrCancelled = errors.New("executor: task cancelled")
	// ErrNilTask is returned when a nil task or runnable is submitted.
	ErrNilTask = errors.New("executor: nil task")
	// ErrNoTasks is returned by InvokeAny for an empty task list.
	ErrNoTasks = errors.New("executor: no tasks")
)

// PanicError is the result of a task that panicked. Stack is captured at recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("executor: task panicked: %v", e.Value)
}

// Unwrap exposes a panic value that is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
