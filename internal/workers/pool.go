// Package workers provides the bounded pool shared by thumbnail and hydration work.
package workers

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
)

// Task is one unit of pool work.
type Task func(ctx context.Context)

const queueDepth = 256

// Pool runs tasks on a fixed number of workers.
type Pool struct {
	ctx     context.Context
	tasks   chan Task
	g       *errgroup.Group
	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
}

// New starts size workers (consts.DefaultWorkers when size < 1) bound to ctx.
func New(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = consts.DefaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	p := &Pool{
		ctx:   gctx,
		tasks: make(chan Task, queueDepth),
		g:     g,
	}
	for i := range size {
		g.Go(func() error {
			p.work(i)
			return nil
		})
	}
	logger.Pl.D(2, "Started worker pool with %d workers", size)
	return p
}

func (p *Pool) work(id int) {
	for task := range p.tasks {
		if p.ctx.Err() == nil {
			p.run(id, task)
		}
		p.pending.Done()
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Pl.E("Worker %d recovered from panic: %v", id, fmt.Sprint(r))
		}
	}()
	task(p.ctx)
}

// Submit queues a task. Returns false if the pool is closed or its context is done.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}
	p.pending.Add(1)
	select {
	case p.tasks <- task:
		return true
	case <-p.ctx.Done():
		p.pending.Done()
		return false
	}
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close stops accepting tasks and waits for the workers to drain the queue.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	return p.g.Wait()
}
