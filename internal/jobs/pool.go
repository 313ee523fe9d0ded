// Package jobs provides the solver's worker pool and scratch allocator.
package jobs

import (
	"runtime"
	"sync"

	"github.com/getsentry/sentry-go"
)

// DefaultWorkers leaves four hardware threads for the render loop, the
// simulation goroutine and the OS, but never drops below two workers.
func DefaultWorkers() int {
	return max(runtime.NumCPU()-4, 2)
}

type Pool struct {
	queue   chan func()
	workers int

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	p := &Pool{
		queue:   make(chan func(), workers*4),
		workers: workers,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for f := range p.queue {
		p.run(f)
	}
}

func (p *Pool) run(f func()) {
	defer sentry.Recover()
	f()
}

func (p *Pool) Workers() int { return p.workers }

// Submit queues f. It reports false once the pool is closed.
func (p *Pool) Submit(f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.queue <- f
	return true
}

// ParallelFor calls fn over [0, n) split into contiguous chunks of at least
// minChunk elements, and returns when every chunk has finished. Small ranges
// and closed pools run inline on the caller.
func (p *Pool) ParallelFor(n, minChunk int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if minChunk < 1 {
		minChunk = 1
	}

	workers := p.workers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		s, e := start, end
		if !p.Submit(func() {
			defer wg.Done()
			fn(s, e)
		}) {
			fn(s, e)
			wg.Done()
		}
	}
	wg.Wait()
}

// Close stops the workers after the queued jobs drain. Safe to call twice.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
