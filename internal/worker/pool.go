package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	errpkg "github.com/veranemoloko/media-downloader/internal/errors"
	"github.com/veranemoloko/media-downloader/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Job is a unit of work run by a pool worker.
type Job func(ctx context.Context)

type queuedJob struct {
	id  string
	run Job
}

// Pool runs jobs on a fixed number of workers fed by a bounded queue.
type Pool struct {
	queue  chan queuedJob
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines draining a queue of queueSize jobs.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan queuedJob, queueSize),
		group:  &errgroup.Group{},
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	for i := 0; i < workers; i++ {
		workerID := i + 1
		p.group.Go(func() error {
			for job := range p.queue {
				metrics.QueuedJobs.Dec()
				p.run(workerID, job)
			}
			return nil
		})
	}

	logger.Info("worker pool started", "workers", workers, "queue_size", queueSize)
	return p
}

func (p *Pool) run(workerID int, job queuedJob) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "worker_id", workerID, "job_id", job.id, "panic", fmt.Sprint(r))
		}
	}()

	p.logger.Debug("job started", "worker_id", workerID, "job_id", job.id)
	job.run(p.ctx)
}

// Submit enqueues a job without blocking.
// It returns ErrQueueFull when the queue has no room and ErrPoolClosed after Shutdown.
func (p *Pool) Submit(id string, run Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errpkg.ErrPoolClosed
	}

	select {
	case p.queue <- queuedJob{id: id, run: run}:
		metrics.QueuedJobs.Inc()
		return nil
	default:
		return errpkg.ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued and running ones.
// If ctx expires first, running jobs are cancelled and ctx.Err is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.logger.Warn("worker pool shutdown timed out, running jobs cancelled")
		return ctx.Err()
	}
}
