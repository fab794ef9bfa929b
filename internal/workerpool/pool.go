// Package workerpool runs command units off the event-loop goroutine.
//
// A Pool owns a fixed number of worker goroutines, started on an ants pool of
// the same size. Units are queued without bound; each worker takes one unit at
// a time and runs it to completion.
//
// In the default shared mode all workers pull from one queue, so two units
// from the same connection may finish in either order. In ordered mode each
// worker has its own queue and SubmitKeyed routes by key hash, which keeps
// units with the same key in submission order.
package workerpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned when submitting to a pool that has been closed.
var ErrPoolClosed = errors.New("workerpool: pool closed")

// Task is one unit of work.
type Task func()

type Config struct {
	// Workers is the number of worker goroutines. Zero means runtime.NumCPU().
	Workers int
	// Ordered gives every worker its own queue; see SubmitKeyed.
	Ordered bool
}

type Pool struct {
	workers *ants.Pool
	queues  []*queue
	size    int
	ordered bool
	next    atomic.Uint64
	closed  atomic.Bool
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Pool, error) {
	size := cfg.Workers
	if size < 0 {
		return nil, fmt.Errorf("workerpool: invalid worker count %d", size)
	}
	if size == 0 {
		size = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}

	workers, err := ants.NewPool(size,
		ants.WithPreAlloc(true),
		ants.WithDisablePurge(true),
		ants.WithLogger(zap.NewStdLog(log.Named("ants"))),
	)
	if err != nil {
		return nil, fmt.Errorf("workerpool: %w", err)
	}

	p := &Pool{
		workers: workers,
		size:    size,
		ordered: cfg.Ordered,
		log:     log,
	}

	if cfg.Ordered {
		p.queues = make([]*queue, size)
		for i := range p.queues {
			p.queues[i] = newQueue()
		}
	} else {
		p.queues = []*queue{newQueue()}
	}

	for i := 0; i < size; i++ {
		q := p.queues[i%len(p.queues)]
		if err := workers.Submit(func() { p.run(q) }); err != nil {
			p.stopQueues()
			workers.Release()
			return nil, fmt.Errorf("workerpool: start worker %d: %w", i, err)
		}
	}

	return p, nil
}

// Submit queues task. In ordered mode tasks are spread round-robin.
func (p *Pool) Submit(task Task) error {
	q := p.queues[0]
	if p.ordered {
		q = p.queues[p.next.Add(1)%uint64(len(p.queues))]
	}
	return p.push(q, task)
}

// SubmitKeyed queues task. In ordered mode every task with the same key runs
// on the same worker, in submission order. In shared mode it is Submit.
func (p *Pool) SubmitKeyed(key string, task Task) error {
	if !p.ordered {
		return p.push(p.queues[0], task)
	}
	return p.push(p.queues[xxhash.Sum64String(key)%uint64(len(p.queues))], task)
}

func (p *Pool) push(q *queue, task Task) error {
	if p.closed.Load() || !q.push(task) {
		return ErrPoolClosed
	}
	return nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Running returns the number of worker goroutines still alive.
func (p *Pool) Running() int {
	return p.workers.Running()
}

// Pending returns the number of queued units not yet taken by a worker.
func (p *Pool) Pending() int {
	n := 0
	for _, q := range p.queues {
		n += q.len()
	}
	return n
}

// Close stops the workers and waits up to timeout for them to exit. Units a
// worker already took run to completion; queued units are dropped.
func (p *Pool) Close(timeout time.Duration) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if dropped := p.stopQueues(); dropped > 0 {
		p.log.Info("dropped queued units", zap.Int("count", dropped))
	}
	if err := p.workers.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("workerpool: release: %w", err)
	}
	return nil
}

func (p *Pool) stopQueues() int {
	dropped := 0
	for _, q := range p.queues {
		dropped += q.stop()
	}
	return dropped
}

func (p *Pool) run(q *queue) {
	for {
		task, ok := q.pop()
		if !ok {
			return
		}
		p.exec(task)
	}
}

// exec runs one unit. A panicking unit is logged and dropped so the worker
// count stays fixed; it is not retried.
func (p *Pool) exec(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("unit panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	task()
}
