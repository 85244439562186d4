package executor

import (
	"context"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/gaborage/tenantguard/logger"
	"github.com/gaborage/tenantguard/multitenant"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
	defaultPoolName  = "default"
)

// CarrierFactory builds the carrier a worker exposes to propagated tasks, usually an
// integration that mirrors the worker's store into ambient state.
type CarrierFactory func(store *multitenant.Store) multitenant.Carrier

// Option configures a WorkerPool.
type Option func(*WorkerPool)

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(p *WorkerPool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize sets how many admitted tasks may wait for a free worker.
func WithQueueSize(n int) Option {
	return func(p *WorkerPool) {
		if n >= 0 {
			p.queueSize = n
		}
	}
}

// WithRejectWhenFull makes submission fail with ErrQueueFull instead of blocking.
func WithRejectWhenFull(reject bool) Option {
	return func(p *WorkerPool) {
		p.rejectWhenFull = reject
	}
}

// WithName labels the pool in logs and metrics.
func WithName(name string) Option {
	return func(p *WorkerPool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithCarrierFactory installs a per-worker carrier around each worker's store.
func WithCarrierFactory(factory CarrierFactory) Option {
	return func(p *WorkerPool) {
		p.carrierFor = factory
	}
}

type job struct {
	id     string
	future *Future
	run    Task
}

// WorkerPool runs tasks on a fixed set of long-lived workers.
//
// Each worker owns a fresh multitenant.Store that it keeps for its whole life and
// exposes to every task it runs. Workers do not inherit the identity of whoever created
// or submitted to the pool.
type WorkerPool struct {
	name           string
	log            logger.Logger
	workers        int
	queueSize      int
	rejectWhenFull bool
	carrierFor     CarrierFactory

	admission *semaphore.Weighted
	jobs      chan *job

	baseCtx context.Context
	stop    context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	finished chan struct{}
}

var _ Executor = (*WorkerPool)(nil)

// NewWorkerPool starts the workers. A nil log discards pool logs.
func NewWorkerPool(log logger.Logger, opts ...Option) *WorkerPool {
	if log == nil {
		log = logger.Nop()
	}
	p := &WorkerPool{
		name:      defaultPoolName,
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		finished:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = log.WithFields(map[string]any{"pool": p.name})

	capacity := p.workers + p.queueSize
	p.admission = semaphore.NewWeighted(int64(capacity))
	p.jobs = make(chan *job, capacity)
	p.baseCtx, p.stop = context.WithCancel(context.Background())

	p.wg.Add(p.workers)
	for i := range p.workers {
		go p.worker(i)
	}
	go func() {
		p.wg.Wait()
		close(p.finished)
	}()
	return p
}

// Execute schedules fire-and-forget work. Panics are recovered and logged.
func (p *WorkerPool) Execute(ctx context.Context, r Runnable) error {
	if r == nil {
		return ErrNilTask
	}
	_, err := p.enqueue(ctx, func(ctx context.Context) (any, error) {
		r(ctx)
		return nil, nil
	})
	return err
}

// Submit schedules task. The context only bounds admission; the task runs under the
// worker's context.
func (p *WorkerPool) Submit(ctx context.Context, task Task) (*Future, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	return p.enqueue(ctx, task)
}

// InvokeAll implements Executor.
func (p *WorkerPool) InvokeAll(ctx context.Context, tasks []Task) ([]*Future, error) {
	return invokeAll(ctx, p.Submit, tasks)
}

// InvokeAny implements Executor.
func (p *WorkerPool) InvokeAny(ctx context.Context, tasks []Task, timeout time.Duration) (any, error) {
	return invokeAny(ctx, p.Submit, tasks, timeout)
}

// Shutdown stops admission and drains the queue. If ctx ends first, running tasks are
// cancelled, queued ones complete with ErrPoolClosed, and ctx.Err() is returned.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
		p.log.Info().Int("workers", p.workers).Msg("Worker pool shutting down")
	}
	p.mu.Unlock()

	select {
	case <-p.finished:
		p.stop()
		return nil
	case <-ctx.Done():
		p.stop()
		p.log.Warn().Msg("Worker pool shutdown deadline reached - cancelling running tasks")
		return ctx.Err()
	}
}

func (p *WorkerPool) enqueue(ctx context.Context, task Task) (*Future, error) {
	if p.isClosed() {
		recordRejected(ctx, p.name, reasonClosed)
		return nil, ErrPoolClosed
	}

	if p.rejectWhenFull {
		if !p.admission.TryAcquire(1) {
			recordRejected(ctx, p.name, reasonQueueFull)
			return nil, ErrQueueFull
		}
	} else if err := p.admission.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	j := &job{id: uuid.NewString(), run: task}
	j.future = newFuture(j.id)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.admission.Release(1)
		recordRejected(ctx, p.name, reasonClosed)
		return nil, ErrPoolClosed
	}
	// Never blocks: the buffer is as large as the admission semaphore.
	p.jobs <- j
	recordQueueDepth(ctx, p.name, 1)
	return j.future, nil
}

func (p *WorkerPool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *WorkerPool) worker(index int) {
	defer p.wg.Done()

	store := multitenant.NewStore()
	ctx := multitenant.WithStore(p.baseCtx, store)
	log := p.log.WithFields(map[string]any{"worker": index})
	if p.carrierFor != nil {
		carrier := p.carrierFor(store)
		ctx = multitenant.WithCarrier(ctx, carrier)
		if closer, ok := carrier.(io.Closer); ok {
			defer func() {
				if err := closer.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close worker carrier")
				}
			}()
		}
	}

	for j := range p.jobs {
		recordQueueDepth(ctx, p.name, -1)
		p.runJob(ctx, log, j)
		p.admission.Release(1)
	}
}

func (p *WorkerPool) runJob(workerCtx context.Context, log logger.Logger, j *job) {
	if workerCtx.Err() != nil {
		j.future.complete(nil, ErrPoolClosed)
		recordTask(workerCtx, p.name, outcomeDropped)
		return
	}

	jobCtx, cancel := context.WithCancel(workerCtx)
	defer cancel()
	if !j.future.start(cancel) {
		recordTask(workerCtx, p.name, outcomeCancelled)
		return
	}

	start := time.Now()
	result, err := p.call(jobCtx, j.run)
	duration := time.Since(start)

	outcome := outcomeSuccess
	switch perr, isPanic := err.(*PanicError); {
	case isPanic:
		outcome = outcomePanic
		log.Error().
			Str("task_id", j.id).
			Interface("panic", perr.Value).
			Str("stack", string(perr.Stack)).
			Msg("Task panicked - recovered and marked as failed")
	case err != nil:
		outcome = outcomeError
		log.Debug().
			Err(err).
			Str("task_id", j.id).
			Dur("duration", duration).
			Msg("Task returned an error")
	}

	if !j.future.complete(result, err) {
		outcome = outcomeCancelled
	}
	recordTask(workerCtx, p.name, outcome)
}

func (p *WorkerPool) call(ctx context.Context, task Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}
