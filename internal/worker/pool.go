// Package worker provides a bounded fire-and-forget task pool. Callers
// submit follow-up work (memory persistence, projections) and return to
// their response path immediately; a fixed set of goroutines drains the
// queue. Failed tasks are logged and never retried.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type task struct {
	id   string
	name string
	fn   func(context.Context) error
}

// Pool runs submitted tasks on background goroutines.
type Pool struct {
	queue  chan task
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts a pool with the given number of workers and queue capacity.
func New(workers, queueSize int, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan task, queueSize),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for t := range p.queue {
		start := time.Now()
		if err := t.fn(p.ctx); err != nil {
			p.log.Error().
				Str("task_id", t.id).
				Str("task", t.name).
				Dur("elapsed", time.Since(start)).
				Err(err).
				Msg("background task failed")
			continue
		}
		p.log.Debug().
			Str("task_id", t.id).
			Str("task", t.name).
			Dur("elapsed", time.Since(start)).
			Msg("background task done")
	}
}

// Submit enqueues a task without blocking. It returns false when the queue
// is full or the pool is closed; the task is dropped in either case, which
// is acceptable because every projection is recomputable from the database.
func (p *Pool) Submit(name string, fn func(context.Context) error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.Warn().Str("task", name).Msg("task dropped, pool closed")
		return false
	}

	t := task{id: uuid.NewString(), name: name, fn: fn}
	select {
	case p.queue <- t:
		return true
	default:
		p.log.Warn().Str("task", name).Msg("task dropped, queue full")
		return false
	}
}

// Close stops accepting tasks, drains the queue, and waits for the
// workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}
