package worker

import (
	"context"
	"errors"
	"sync"

	"prospect-tracker-api/internal/logger"

	"github.com/rs/zerolog"
)

// ErrPoolClosed is returned by Submit once Stop has been called.
var ErrPoolClosed = errors.New("worker pool closed")

// Job is a unit of work run by the pool. A returned error is logged.
type Job func(ctx context.Context) error

// Pool runs submitted jobs on a fixed number of goroutines.
type Pool struct {
	workerCount int
	jobs        chan Job
	wg          sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	log zerolog.Logger
}

func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		workerCount: workerCount,
		jobs:        make(chan Job, workerCount*2),
		log:         logger.Component("worker_pool"),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.workerCount).Msg("Starting worker pool")

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.log.Info().Msg("Stopping worker pool")
	p.wg.Wait()
	p.log.Info().Msg("Worker pool stopped")
}

// Submit hands job to a worker, blocking while the queue is full. Jobs are
// never dropped: Submit fails only when ctx ends or the pool is stopped.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Worker started")

	for job := range p.jobs {
		if err := job(ctx); err != nil {
			log.Error().Err(err).Msg("Job execution failed")
		}
	}

	log.Debug().Msg("Worker stopping due to closed job channel")
}
