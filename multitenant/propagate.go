package multitenant

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/tenantguard/logger"
)

// Propagator carries the submitter's identity into work that runs later on another
// goroutine, typically a reused pool worker.
//
// Identity is captured when the work is wrapped, not when it runs. When the wrapped
// work runs it captures whatever the executing slot already held, applies the
// submitted identity, runs the work, and finally clears the slot and re-applies the
// prior identity. The restore step is deferred, so it runs after errors, panics and
// cancellation as well.
type Propagator struct {
	log logger.Logger
}

// NewPropagator creates a propagator that reports restore failures to log.
// A nil log discards them.
func NewPropagator(log logger.Logger) *Propagator {
	if log == nil {
		log = logger.Nop()
	}
	return &Propagator{log: log}
}

// Run wraps fire-and-forget work. Apply failures are logged and the work is skipped.
func (p *Propagator) Run(ctx context.Context, fn func(context.Context)) func(context.Context) {
	call := Call(p, ctx, func(runCtx context.Context) (struct{}, error) {
		fn(runCtx)
		return struct{}{}, nil
	})
	return func(runCtx context.Context) {
		_, _ = call(runCtx)
	}
}

// Call wraps work producing a result. The returned function yields fn's result and error
// unchanged; restore failures are attached to a failing task as *SuppressedError and only
// logged for a successful one.
func Call[T any](p *Propagator, ctx context.Context, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	if p == nil {
		p = NewPropagator(nil)
	}
	submitted := Capture(ctx)
	spanCtx := trace.SpanContextFromContext(ctx)

	return func(runCtx context.Context) (result T, err error) {
		runCtx, carrier := slotFor(runCtx)
		// Apply and restore must not be skipped because the task was cancelled.
		bridgeCtx := context.WithoutCancel(runCtx)
		prior := carrier.Capture()

		finished := false
		defer func() {
			restoreErr := prior.ApplyTo(bridgeCtx, carrier)
			if restoreErr == nil {
				return
			}
			p.restoreFailed(runCtx, prior, restoreErr, finished, err)
			if finished && err != nil {
				err = withSuppressed(err, restoreErr)
			}
		}()

		if applyErr := submitted.ApplyTo(bridgeCtx, carrier); applyErr != nil {
			finished = true
			p.log.Error().
				Err(applyErr).
				Msg("Failed to apply submitted tenant identity; task not run")
			var zero T
			return zero, fmt.Errorf("%w: %w", ErrPropagationFailed, applyErr)
		}

		taskCtx := WithIdentity(runCtx, submitted.Identity())
		if spanCtx.IsValid() {
			taskCtx = trace.ContextWithSpanContext(taskCtx, spanCtx)
		}

		result, err = fn(taskCtx)
		finished = true
		return result, err
	}
}

func (p *Propagator) restoreFailed(ctx context.Context, prior Snapshot, restoreErr error, finished bool, taskErr error) {
	outcome := outcomeSuccess
	switch {
	case !finished:
		outcome = outcomePanic
	case taskErr != nil:
		outcome = outcomeError
	}
	recordRestoreFailure(ctx, outcome)

	event := p.log.WithFields(prior.Identity().LogFields()).Error().
		Err(restoreErr).
		Str("task_outcome", outcome)
	if outcome == outcomeSuccess {
		event.Msg("Failed to restore worker tenant identity; task result kept")
		return
	}
	event.Msg("Failed to restore worker tenant identity after task failure")
}

// slotFor returns the carrier of the executing unit of work. Goroutines without one get
// a fresh store, so they never see anyone else's identity.
func slotFor(ctx context.Context) (context.Context, Carrier) {
	if carrier, ok := CarrierFrom(ctx); ok {
		return ctx, carrier
	}
	store := NewStore()
	return WithStore(ctx, store), store
}
