// Copyright 2025 The go-ndimage Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent, reusable worker pool for
// parallel computation over image line ranges. A Pool is created once and
// reused across many scans, eliminating allocation and spawn overhead on
// the per-filter-call path.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	pool.ParallelForWorker(lines, func(worker, start, end int) {
//	    processLines(worker, start, end)
//	})
//
// The engines share the process-wide pool returned by Default.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a persistent worker pool. Workers are spawned once at creation
// and reused for every parallel operation until Close.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single parallel operation to execute.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a worker pool with the specified number of workers.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool. Worker indices
// passed to ParallelForWorker callbacks lie in [0, NumWorkers()).
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the pool. All pending work completes first. Calling
// Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// ParallelFor executes fn over [0, n) partitioned into contiguous ranges,
// one per worker. Blocks until all work completes.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	p.ParallelForWorker(n, func(_, start, end int) { fn(start, end) })
}

// ParallelForWorker executes fn over [0, n) partitioned into contiguous
// disjoint ranges, one per worker, passing each invocation its worker
// index. The index identifies a private slot for mutable per-worker state
// (scratch buffers, kernel variables): no two concurrent invocations share
// an index. Blocks until all work completes.
func (p *Pool) ParallelForWorker(n int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if p.closed.Load() {
		fn(0, 0, n)
		return
	}

	workers := min(p.numWorkers, n)
	if workers == 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := range workers {
		worker := i
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			wg.Done()
			continue
		}
		p.workC <- workItem{
			fn:      func() { fn(worker, start, end) },
			barrier: &wg,
		}
	}
	wg.Wait()
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// Default returns the process-wide shared pool, created on first use with
// GOMAXPROCS workers. It is never closed.
func Default() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = New(0)
	})
	return defaultPool
}
