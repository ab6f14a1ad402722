package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/engine"
	"github.com/vk/jobchain/internal/registry"
	"golang.org/x/sync/semaphore"
)

// ErrNotStarted is returned by Submit before Start.
var ErrNotStarted = errors.New("executor not started")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("executor closed")

// Reporter receives job outcomes. *engine.Engine satisfies it.
type Reporter interface {
	Complete(ctx context.Context, runID, jobID string, response any) error
	Fail(ctx context.Context, runID, jobID string, cause error) error
}

// PanicError is reported when a handler panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Option configures an Executor.
type Option func(*Executor)

// WithJobTimeout bounds the run time of a single handler call.
func WithJobTimeout(d time.Duration) Option {
	return func(e *Executor) { e.jobTimeout = d }
}

// Executor implements engine.Dispatcher for local execution.
type Executor struct {
	registry   *registry.Registry
	workers    int
	sem        *semaphore.Weighted
	jobTimeout time.Duration

	mu       sync.Mutex
	ctx      context.Context
	reporter Reporter
	closed   bool
	inflight int
	idle     chan struct{}
	errs     []error
	wg       sync.WaitGroup
}

var _ engine.Dispatcher = (*Executor)(nil)

// New creates a local executor running at most workers handlers at once.
func New(reg *registry.Registry, workers int, opts ...Option) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{
		registry: reg,
		workers:  workers,
		sem:      semaphore.NewWeighted(int64(workers)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start binds the executor to the reporter. ctx is the parent of every
// handler call; cancelling it fails the jobs still waiting for a worker.
func (e *Executor) Start(ctx context.Context, reporter Reporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx = ctx
	e.reporter = reporter
	ctxlog.FromContext(ctx).Debug("Local executor started.", "workers", e.workers)
}

// Submit queues sub and returns immediately.
func (e *Executor) Submit(ctx context.Context, sub engine.Submission) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.reporter == nil {
		return ErrNotStarted
	}
	e.inflight++
	e.wg.Add(1)
	go e.run(e.ctx, sub)
	return nil
}

func (e *Executor) run(ctx context.Context, sub engine.Submission) {
	defer e.finish()

	logger := ctxlog.FromContext(ctx).With("run_id", sub.RunID, "job_id", sub.JobID, "type", sub.Type)
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		logger.Warn("Job abandoned before a worker was free.", "error", err)
		e.report(context.WithoutCancel(ctx), sub, nil, err)
		return
	}
	defer e.sem.Release(1)

	logger.Debug("Worker picked up job for execution.")
	response, err := e.invoke(ctx, sub)
	if err != nil {
		logger.Error("Job execution failed.", "error", err)
	} else {
		logger.Debug("Job execution succeeded.")
	}
	e.report(context.WithoutCancel(ctx), sub, response, err)
}

func (e *Executor) invoke(ctx context.Context, sub engine.Submission) (response any, err error) {
	h, err := e.registry.Lookup(sub.Type)
	if err != nil {
		return nil, err
	}
	if e.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.jobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return h.Handle(ctx, sub.Params)
}

func (e *Executor) report(ctx context.Context, sub engine.Submission, response any, cause error) {
	var err error
	if cause != nil {
		err = e.reporter.Fail(ctx, sub.RunID, sub.JobID, cause)
	} else {
		err = e.reporter.Complete(ctx, sub.RunID, sub.JobID, response)
	}
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Reporting job outcome failed.", "error", err)
		e.mu.Lock()
		e.errs = append(e.errs, fmt.Errorf("job %q of run %s: %w", sub.JobID, sub.RunID, err))
		e.mu.Unlock()
	}
}

func (e *Executor) finish() {
	e.mu.Lock()
	e.inflight--
	if e.inflight == 0 && e.idle != nil {
		close(e.idle)
		e.idle = nil
	}
	e.mu.Unlock()
	e.wg.Done()
}

// Wait blocks until no job is queued or running. Jobs submitted by the
// reports of finishing jobs are waited for too.
func (e *Executor) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.inflight == 0 {
		e.mu.Unlock()
		return nil
	}
	if e.idle == nil {
		e.idle = make(chan struct{})
	}
	idle := e.idle
	e.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the joined errors met while reporting outcomes.
func (e *Executor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.errs...)
}

// Close rejects further submissions and waits for running jobs.
func (e *Executor) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}
