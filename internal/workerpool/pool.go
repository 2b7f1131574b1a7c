// Package workerpool provides a fixed-size goroutine pool with an explicit
// lifecycle. Pools are created once at startup and closed at exit.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docsum/internal/logger"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

type Pool struct {
	name  string
	size  int
	tasks chan func()
	log   logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts size workers. A nil logger discards output.
func New(name string, size int, log logger.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Pool{
		name:  name,
		size:  size,
		tasks: make(chan func()),
		log:   log.With(logger.String("pool", name)),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("task panicked", logger.String("panic", fmt.Sprint(r)))
		}
	}()
	task()
}

// Size is the number of workers.
func (p *Pool) Size() int { return p.size }

// Submit hands task to an idle worker, blocking until one is free, ctx is
// done or the pool is closed.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for running ones to finish.
// It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
	p.log.Debug("pool closed")
}
