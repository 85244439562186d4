package executor

import (
	"context"
	"errors"
	"time"
)

type submitFunc func(ctx context.Context, task Task) (*Future, error)

func cancelAll(futures []*Future) {
	for _, f := range futures {
		f.Cancel()
	}
}

func invokeAll(ctx context.Context, submit submitFunc, tasks []Task) ([]*Future, error) {
	futures := make([]*Future, 0, len(tasks))
	for _, task := range tasks {
		f, err := submit(ctx, task)
		if err != nil {
			cancelAll(futures)
			return nil, err
		}
		futures = append(futures, f)
	}

	for _, f := range futures {
		select {
		case <-f.Done():
		case <-ctx.Done():
			cancelAll(futures)
			return futures, ctx.Err()
		}
	}
	return futures, nil
}

func invokeAny(ctx context.Context, submit submitFunc, tasks []Task, timeout time.Duration) (any, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}
	outcomes := make(chan outcome, len(tasks))

	futures := make([]*Future, 0, len(tasks))
	defer func() { cancelAll(futures) }()

	for _, task := range tasks {
		f, err := submit(waitCtx, task)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return nil, ErrTimeout
			}
			return nil, err
		}
		futures = append(futures, f)
		go func() {
			<-f.Done()
			result, err := f.outcome()
			outcomes <- outcome{result: result, err: err}
		}()
	}

	errs := make([]error, 0, len(tasks))
	for range futures {
		select {
		case o := <-outcomes:
			if o.err == nil {
				return o.result, nil
			}
			errs = append(errs, o.err)
		case <-waitCtx.Done():
			if ctx.Err() == nil {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		}
	}
	return nil, errors.Join(errs...)
}
