// Package queue runs registered job handlers with bounded concurrency
// per job type. Queue depth is unbounded; only execution is bounded, so
// operators size concurrency to sustainable throughput.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mgn-dev/alx-backend/internal/domain"
	"github.com/mgn-dev/alx-backend/internal/store"
)

// ProgressFunc reports handler progress in percent.
type ProgressFunc func(percent int) error

// Handler executes one job. Returning nil completes the job; returning
// an error fails it, with domain.Retryable deciding whether retry
// budget is spent. The context is cancelled when the job's execution
// budget runs out, handlers must honor it across blocking calls.
type Handler func(ctx context.Context, job *domain.Job, progress ProgressFunc) error

type registration struct {
	handler     Handler
	concurrency int
}

// Option configures a Pool.
type Option func(*Pool)

// WithTimeout sets the per-job execution budget.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) { p.timeout = d }
}

// WithPollInterval sets how long an idle worker sleeps between dequeue
// attempts.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) { p.poll = d }
}

// Pool dispatches queued jobs to handlers. Within one type, jobs start
// in FIFO arrival order; completion order is not guaranteed.
type Pool struct {
	store   store.JobStore
	log     *zap.Logger
	timeout time.Duration
	poll    time.Duration

	mu       sync.Mutex
	handlers map[string]registration
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a pool consuming from the given store.
func New(s store.JobStore, log *zap.Logger, opts ...Option) *Pool {
	p := &Pool{
		store:    s,
		log:      log,
		timeout:  30 * time.Second,
		poll:     100 * time.Millisecond,
		handlers: make(map[string]registration),
		stopCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Register binds a handler to a job type with the maximum number of
// simultaneously active jobs of that type. Must be called before Start.
func (p *Pool) Register(jobType string, concurrency int, h Handler) error {
	if concurrency < 1 {
		return errors.Errorf("queue: concurrency %d for %q, need at least 1", concurrency, jobType)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.Errorf("queue: pool already started, cannot register %q", jobType)
	}
	if _, dup := p.handlers[jobType]; dup {
		return errors.Errorf("queue: handler for %q already registered", jobType)
	}
	p.handlers[jobType] = registration{handler: h, concurrency: concurrency}
	return nil
}

// Start launches the worker goroutines. Idempotent.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	for jobType, reg := range p.handlers {
		p.log.Info("starting workers",
			zap.String("type", jobType),
			zap.Int("concurrency", reg.concurrency),
		)
		for i := 0; i < reg.concurrency; i++ {
			p.wg.Add(1)
			go p.dispatchLoop(jobType, reg.handler)
		}
	}
}

// Running reports whether the pool has been started.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stop signals all workers to stop and waits for in-flight jobs to
// settle. In-flight work is never abandoned mid-execution; the per-job
// timeout still bounds how long that takes. Idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

func (p *Pool) dispatchLoop(jobType string, h Handler) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		id, err := p.store.Dequeue(context.Background(), jobType)
		if err != nil {
			p.log.Error("dequeue failed", zap.String("type", jobType), zap.Error(err))
			p.sleep()
			continue
		}
		if id == "" {
			p.sleep()
			continue
		}

		p.runJob(h, id)
	}
}

// runJob executes one job and settles it exactly once. A handler that
// neither returns nor honors its context is cut off by the timeout and
// the job fails with reason "timeout".
func (p *Pool) runJob(h Handler, id string) {
	ctx := context.Background()

	if err := p.store.MarkActive(ctx, id); err != nil {
		p.log.Error("activate failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	job, err := p.store.Get(ctx, id)
	if err != nil {
		p.log.Error("load failed", zap.String("job_id", id), zap.Error(err))
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	progress := func(percent int) error {
		return p.store.ReportProgress(runCtx, id, percent)
	}

	var settled atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- p.invoke(runCtx, h, job, progress)
	}()

	select {
	case err := <-done:
		p.settle(job, err, &settled)
	case <-runCtx.Done():
		p.settle(job, errors.Wrapf(domain.ErrTimeout, "job %s exceeded %s", id, p.timeout), &settled)
		go func() {
			late := <-done
			p.log.Debug("discarded late handler result",
				zap.String("job_id", id),
				zap.Error(late),
			)
		}()
	}
}

// invoke runs the handler, converting panics into job failures so one
// bad handler cannot take down a worker goroutine.
func (p *Pool) invoke(ctx context.Context, h Handler, job *domain.Job, progress ProgressFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job, progress)
}

// settle records the terminal outcome. The settled flag guards against
// a second signal for the same run (e.g. a handler returning after its
// timeout already failed the job).
func (p *Pool) settle(job *domain.Job, err error, settled *atomic.Bool) {
	if !settled.CompareAndSwap(false, true) {
		p.log.Warn("duplicate terminal signal ignored", zap.String("job_id", job.ID))
		return
	}

	// A handler that surfaces its deadline as a bare context error still
	// counts as a timeout.
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = errors.Wrapf(domain.ErrTimeout, "job %s", job.ID)
	}

	ctx := context.Background()
	if err == nil {
		if cerr := p.store.Complete(ctx, job.ID); cerr != nil {
			p.log.Error("complete failed", zap.String("job_id", job.ID), zap.Error(cerr))
			return
		}
		p.log.Info("job completed", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return
	}

	requeued, ferr := p.store.Fail(ctx, job.ID, err.Error(), domain.Retryable(err))
	if ferr != nil {
		p.log.Error("fail failed", zap.String("job_id", job.ID), zap.Error(ferr))
		return
	}
	p.log.Info("job failed",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.String("reason", err.Error()),
		zap.Bool("requeued", requeued),
	)
}

func (p *Pool) sleep() {
	select {
	case <-time.After(p.poll):
	case <-p.stopCh:
	}
}
