package executor

import (
	"context"
	"fmt"
	"sync"
)

// Future is the pending result of a submitted task.
type Future struct {
	id   string
	done chan struct{}

	mu        sync.Mutex
	completed bool
	cancelled bool
	cancelRun context.CancelFunc
	result    any
	err       error
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// ID returns the task id used in logs.
func (f *Future) ID() string {
	return f.id
}

// Done is closed once the task completed or the future was cancelled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result. When ctx is done first it returns ctx.Err() and leaves the
// task running.
func (f *Future) Get(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.outcome()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel completes the future with ErrCancelled and cancels the task's context if it is
// already running. It reports false when the future had already completed.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.cancelled = true
	f.err = ErrCancelled
	cancel := f.cancelRun
	f.cancelRun = nil
	close(f.done)
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// Cancelled reports whether Cancel won over task completion.
func (f *Future) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func (f *Future) outcome() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

// start registers the running task's cancel func. It reports false when the future was
// cancelled while queued, in which case the task must not run.
func (f *Future) start(cancel context.CancelFunc) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed {
		return false
	}
	f.cancelRun = cancel
	return true
}

func (f *Future) complete(result any, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed {
		return false
	}
	f.completed = true
	f.result = result
	f.err = err
	f.cancelRun = nil
	close(f.done)
	return true
}

// Await waits for f and asserts its result to T. A nil result yields the zero T.
func Await[T any](ctx context.Context, f *Future) (T, error) {
	var zero T
	v, err := f.Get(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("executor: task %s returned %T, want %T", f.id, v, zero)
	}
	return typed, nil
}
