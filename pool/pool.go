// Package pool provides the bounded worker pool that archive reads fan out
// onto, and futures for collecting task results.
//
// Pools are owned by the caller. An archive never creates a process-wide pool;
// it either receives one through an option or owns a private one for its own
// lifetime.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by Submit after the pool has been closed.
var ErrClosed = errors.New("pool: closed")

// Submitter runs tasks asynchronously.
//
// Implementations must start tasks in the order they were submitted. The
// archive read engine submits every chunk task of a read before the task that
// joins them, and relies on FIFO start order so that a joining task never
// occupies a worker that one of its own chunk tasks is waiting for.
type Submitter interface {
	Submit(task func()) error
}

// Pool is a fixed-size FIFO worker pool.
type Pool struct {
	tasks  chan func()
	eg     errgroup.Group
	size   int
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ Submitter = (*Pool)(nil)

// Option configures a Pool or Table.
type Option func(*options)

type options struct {
	logger *slog.Logger
	queue  int
}

// WithLogger sets the logger used to report recovered task panics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithQueue sets how many submitted tasks may wait for a free worker before
// Submit blocks. The default is the pool size.
func WithQueue(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.queue = n
	}
}

// New starts a pool with size workers. Values <= 0 use GOMAXPROCS.
func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	o := options{queue: -1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queue < 0 {
		o.queue = size
	}

	p := &Pool{
		tasks:  make(chan func(), o.queue),
		size:   size,
		logger: o.logger,
	}
	for range size {
		p.eg.Go(func() error {
			for task := range p.tasks {
				p.run(task)
			}
			return nil
		})
	}
	p.log().Debug("worker pool started", "workers", size, "queue", o.queue)
	return p
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Pool) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit enqueues task. It blocks while the queue is full.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.tasks <- task
	return nil
}

// Close stops accepting tasks, lets queued tasks finish, and waits for the
// workers to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	return p.eg.Wait()
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log().Error("worker task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
}
