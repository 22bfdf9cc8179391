package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// Task is the unit of work a pool runs, for example one screenshot capture.
type Task func() (any, error)

// ResultCallback is invoked on completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(value any, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx  context.Context
	name string
	task Task
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: starting %s", j.name)
				value, err := runWithContext(j.ctx, j.task)
				log.Printf("Worker: %s completed, err=%v", j.name, err)
				j.cb(value, err)
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, name string, task Task, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, name: name, task: task, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// runWithContext runs task and gives up when ctx is done. The task itself is not
// interrupted; its result is discarded.
func runWithContext(ctx context.Context, task Task) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		return task()
	}
	resCh := make(chan struct {
		value any
		err   error
	}, 1)
	go func() {
		value, err := task()
		resCh <- struct {
			value any
			err   error
		}{value, err}
	}()
	select {
	case r := <-resCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
