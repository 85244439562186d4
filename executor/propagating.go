package executor

import (
	"context"
	"time"

	"github.com/gaborage/tenantguard/multitenant"
)

// Propagating decorates an Executor so that every unit of work runs with the identity
// its submitter had at submission time. The worker's own identity is restored after the
// work finishes. Concurrency, timeouts and cancellation are the delegate's.
type Propagating struct {
	delegate   Executor
	propagator *multitenant.Propagator
}

var _ Executor = (*Propagating)(nil)

// Wrap decorates ex with p. Wrapping an already propagating executor returns it
// unchanged, so work is never wrapped twice. A nil p uses a propagator without logging.
func Wrap(ex Executor, p *multitenant.Propagator) Executor {
	if already, ok := ex.(*Propagating); ok {
		return already
	}
	if p == nil {
		p = multitenant.NewPropagator(nil)
	}
	return &Propagating{delegate: ex, propagator: p}
}

// Unwrap returns the decorated executor.
func (e *Propagating) Unwrap() Executor {
	return e.delegate
}

// Execute implements Executor.
func (e *Propagating) Execute(ctx context.Context, r Runnable) error {
	if r == nil {
		return ErrNilTask
	}
	return e.delegate.Execute(ctx, e.propagator.Run(ctx, r))
}

// Submit implements Executor.
func (e *Propagating) Submit(ctx context.Context, task Task) (*Future, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	return e.delegate.Submit(ctx, e.wrap(ctx, task))
}

// InvokeAll implements Executor.
func (e *Propagating) InvokeAll(ctx context.Context, tasks []Task) ([]*Future, error) {
	return e.delegate.InvokeAll(ctx, e.wrapAll(ctx, tasks))
}

// InvokeAny implements Executor.
func (e *Propagating) InvokeAny(ctx context.Context, tasks []Task, timeout time.Duration) (any, error) {
	return e.delegate.InvokeAny(ctx, e.wrapAll(ctx, tasks), timeout)
}

// Shutdown implements Executor.
func (e *Propagating) Shutdown(ctx context.Context) error {
	return e.delegate.Shutdown(ctx)
}

func (e *Propagating) wrap(ctx context.Context, task Task) Task {
	return multitenant.Call[any](e.propagator, ctx, task)
}

func (e *Propagating) wrapAll(ctx context.Context, tasks []Task) []Task {
	wrapped := make([]Task, len(tasks))
	for i, task := range tasks {
		if task == nil {
			continue
		}
		wrapped[i] = e.wrap(ctx, task)
	}
	return wrapped
}
