// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"qr-ticket-system/internal/infra/metrics"
)

// A small fixed-size worker pool for batch jobs.

type Task func(ctx context.Context) error

var (
	ErrNilTask   = errors.New("nil task")
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
)

type Pool struct {
	name string
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	once sync.Once
	n    int
	log  *zerolog.Logger
}

// NewPool sizes the pool to workers goroutines (NumCPU when <= 0). name labels
// job metrics.
func NewPool(name string, workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "worker_pool").Str("pool", name).Logger()
	return &Pool{
		name: name,
		jobs: make(chan Task, workers*4),
		quit: make(chan struct{}),
		n:    workers,
		log:  &l,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					p.drain(ctx, id)
					return
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

// drain runs whatever was queued before Stop.
func (p *Pool) drain(ctx context.Context, id int) {
	for {
		select {
		case task := <-p.jobs:
			p.run(ctx, id, task)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	if task == nil {
		return
	}
	start := time.Now()
	err := task(ctx)
	metrics.ObserveJob(p.name, time.Since(start))
	if err != nil {
		metrics.IncJob(p.name, "error")
		p.log.Error().Err(err).Int("worker", id).Msg("task failed")
		return
	}
	metrics.IncJob(p.name, "ok")
}

// Stop lets queued tasks finish and waits for the workers to exit.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

// Submit enqueues without blocking; a saturated queue returns ErrQueueFull.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		metrics.IncJob(p.name, "dropped")
		return ErrQueueFull
	}
}

// SubmitWait enqueues, blocking until there is room or ctx is done.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	select {
	case p.jobs <- task:
		return nil
	case <-p.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
