// Package worker prerenders dashboard views off a queue so the first
// selector changes hit a warm cache.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/pkg/logger"
	"github.com/okian/poirisk/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Job names one view to compute.
type Job struct {
	View      interaction.ViewID
	Selection model.Selection
}

// Renderer computes a view. The service satisfies it.
type Renderer interface {
	Render(ctx context.Context, v interaction.ViewID, sel model.Selection) (any, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until the queue drains.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	renderer Renderer
	name     string

	processed *atomic.Int64
	failed    *atomic.Int64

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, renderer Renderer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		renderer:  renderer,
		name:      "worker",
		processed: &atomic.Int64{},
		failed:    &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Debug(ctx, "prerender failed", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	if _, err := w.renderer.Render(ctx, job.View, job.Selection); err != nil {
		w.failed.Add(1)
		metrics.RecordWarmJob(string(job.View), "error")
		return fmt.Errorf("%s %s/%q: %w", job.View, job.Selection.Weekday, job.Selection.Category, err)
	}
	w.processed.Add(1)
	metrics.RecordWarmJob(string(job.View), "ok")
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount picks one
// from the CPU count.
func NewPool(workerCount int, queue Queue, renderer Renderer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(queue, renderer, wopts...)
		w.processed = &pool.processed
		w.failed = &pool.failed
		pool.workers[i] = w
	}
	pool.logger = pool.workers[0].logger

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWarmWorkers(len(p.workers))
}

// Wait blocks until every worker has stopped.
func (p *Pool) Wait(ctx context.Context) error {
	defer metrics.UpdateWarmWorkers(0)
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Processed returns the number of jobs rendered successfully.
func (p *Pool) Processed() int { return int(p.processed.Load()) }

// Failed returns the number of jobs that returned an error.
func (p *Pool) Failed() int { return int(p.failed.Load()) }

// Shutdown stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWarmWorkers(0)
	return nil
}
