package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"subtide/internal/logging"
	"subtide/internal/services"
)

// Job is one queued processing request.
type Job struct {
	VideoID         string
	SourceURL       string
	TargetLanguages []string
}

// Pool runs jobs on a fixed number of workers behind a bounded queue.
type Pool struct {
	processor *Processor
	logger    *slog.Logger
	workers   int
	jobs      chan Job

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// NewPool sizes the worker pool. Non-positive values fall back to a single
// worker with a small queue.
func NewPool(processor *Processor, workers, queueCapacity int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueCapacity <= 0 {
		queueCapacity = 8
	}
	return &Pool{
		processor: processor,
		logger:    logging.WithComponent(logger, "pool"),
		workers:   workers,
		jobs:      make(chan Job, queueCapacity),
	}
}

// Start launches the workers. They drain the queue until the context is
// cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					_ = p.processor.Process(ctx, job)
				}
			}
		}(i)
	}
	p.logger.Info("workers started", logging.Int("workers", p.workers))
}

// Submit queues a new job and returns its record id immediately. A full
// queue rejects the job rather than blocking the caller.
func (p *Pool) Submit(sourceURL string, targetLanguages []string) (string, error) {
	job := Job{
		VideoID:         uuid.NewString(),
		SourceURL:       sourceURL,
		TargetLanguages: append([]string(nil), targetLanguages...),
	}
	select {
	case p.jobs <- job:
		p.logger.Info("job queued",
			logging.String("video_id", job.VideoID),
			logging.Int("queued", len(p.jobs)),
		)
		return job.VideoID, nil
	default:
		return "", services.Wrap(services.ErrUnavailable, "pool", "submit", "job queue full", nil)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}
