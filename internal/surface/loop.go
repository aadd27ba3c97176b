// Package surface hands background results to the single interactive goroutine.
package surface

import (
	"context"
	"sync"

	"grabarr/internal/domain/logger"
)

// Poster schedules fn on the interactive goroutine.
type Poster interface {
	Post(fn func())
}

const loopBuffer = 512

// Loop drains posted functions on one goroutine.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop returns a loop that runs once Run is called.
func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), loopBuffer),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. After the loop stops, posts are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		logger.Pl.D(3, "Dropping post to stopped loop")
	case l.queue <- fn:
	}
}

// Run executes posted functions in order until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Pl.E("Recovered from panic in posted function: %v", r)
		}
	}()
	fn()
}

// Sync runs posted functions inline on the caller.
type Sync struct{}

// Post implements Poster.
func (Sync) Post(fn func()) { fn() }

// Wait posts a no-op and blocks until it has run, flushing everything posted before it.
func Wait(ctx context.Context, p Poster) error {
	ch := make(chan struct{})
	p.Post(func() { close(ch) })
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
