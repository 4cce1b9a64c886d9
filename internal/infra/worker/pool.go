// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/infra/metrics"
)

var _ adapter.JobQueue = (*Pool)(nil)

// Options bound the pool's concurrency and retry behavior.
type Options struct {
	Workers     int
	QueueDepth  int
	MaxAttempts int
	Backoff     time.Duration
}

// Pool runs submitted jobs on a fixed set of workers, re-attempting failed
// jobs with linear backoff up to MaxAttempts. A job that exhausts its
// attempts triggers its OnDead hook exactly once.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan adapter.Job
	quit chan struct{}
	opts Options
	log  *zerolog.Logger
}

func NewPool(opts Options, logger *zerolog.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = opts.Workers * 16
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{
		jobs: make(chan adapter.Job, opts.QueueDepth),
		quit: make(chan struct{}),
		opts: opts,
		log:  &l,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case job := <-p.jobs:
					metrics.SetJobQueueDepth(len(p.jobs))
					p.run(ctx, job)
				}
			}
		}()
	}
}

// Stop drains nothing; queued jobs not yet started are dropped. Callers stop
// producers first.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(job adapter.Job) error {
	if job.Run == nil {
		return errors.New("nil job")
	}
	select {
	case p.jobs <- job:
		metrics.SetJobQueueDepth(len(p.jobs))
		return nil
	default:
		// Drop when saturated instead of back-pressuring payment paths.
		return errors.New("worker queue full")
	}
}

func (p *Pool) run(ctx context.Context, job adapter.Job) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		lastErr = job.Run(ctx)
		if lastErr == nil {
			metrics.IncJob(job.Kind, "ok")
			return
		}
		p.log.Warn().Err(lastErr).Str("kind", job.Kind).Int("attempt", attempt).Msg("job attempt failed")
		if attempt == p.opts.MaxAttempts {
			break
		}
		metrics.IncJobRetry(job.Kind)
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-time.After(p.opts.Backoff * time.Duration(attempt)):
		}
	}
	metrics.IncJob(job.Kind, "dead")
	metrics.IncJobDeadLetter()
	if job.OnDead != nil {
		job.OnDead(ctx, p.opts.MaxAttempts, lastErr)
	}
}
