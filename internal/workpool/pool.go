// Package workpool provides the persistent worker pool the enhancement
// stages run on. A pool is created once per process (or per pipeline
// invocation) and reused for every stage pass, so per-image work does not
// pay goroutine spawn overhead four times per frame.
//
// RowRange is the only scheduling primitive the pipeline needs: it
// partitions [0, h) into contiguous row chunks, one per worker, and does
// not return until every chunk has been committed. That return is the
// inter-stage barrier: stage N+1 never observes a partially written
// stage N buffer.
package workpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of persistent workers executing row-chunk tasks.
type Pool struct {
	workers   int
	taskC     chan task
	closeOnce sync.Once
	closed    atomic.Bool
}

type task struct {
	run     func()
	barrier *sync.WaitGroup
}

// New creates a pool with the given worker count and spawns the workers
// immediately. workers <= 0 selects runtime.NumCPU().
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		workers: workers,
		// Buffered so a full stage dispatch never blocks the caller
		// before workers pick tasks up.
		taskC: make(chan task, workers*2),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for t := range p.taskC {
		t.run()
		t.barrier.Done()
	}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// Close shuts the pool down. Pending tasks complete; subsequent RowRange
// calls degrade to a sequential pass with identical results. Safe to call
// more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.taskC)
	})
}

// RowRange runs fn over [0, h) partitioned into contiguous chunks, one
// per worker, and blocks until all chunks are done. fn receives
// half-open row bounds [y0, y1). Chunk boundaries are a pure function of
// h and the worker count, and every row is written by exactly one chunk,
// so output bytes do not depend on scheduling order.
func (p *Pool) RowRange(h int, fn func(y0, y1 int)) {
	if h <= 0 {
		return
	}
	if p.closed.Load() {
		fn(0, h)
		return
	}

	workers := p.workers
	if workers > h {
		workers = h
	}
	if workers == 1 {
		fn(0, h)
		return
	}

	chunk := (h + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		y0 := i * chunk
		y1 := y0 + chunk
		if y1 > h {
			y1 = h
		}
		if y0 >= h {
			wg.Done()
			continue
		}
		p.taskC <- task{
			run:     func() { fn(y0, y1) },
			barrier: &wg,
		}
	}
	wg.Wait()
}
