// Copyright 2025 The go-ndimage Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestParallelFor(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForWorkerCoversOnce(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 1000
	var visits [1000]atomic.Int32
	pool.ParallelForWorker(n, func(worker, start, end int) {
		if worker < 0 || worker >= pool.NumWorkers() {
			t.Errorf("worker id %d out of range", worker)
		}
		for i := start; i < end; i++ {
			visits[i].Add(1)
		}
	})
	for i := range visits {
		if got := visits[i].Load(); got != 1 {
			t.Errorf("index %d visited %d times", i, got)
		}
	}
}

func TestParallelForWorkerPrivateSlots(t *testing.T) {
	pool := New(3)
	defer pool.Close()

	// Each worker accumulates into its own slot; the total must be the
	// sum over the range regardless of the partition.
	sums := make([]int, pool.NumWorkers())
	n := 500
	pool.ParallelForWorker(n, func(worker, start, end int) {
		for i := start; i < end; i++ {
			sums[worker] += i
		}
	})
	total := 0
	for _, s := range sums {
		total += s
	}
	if want := n * (n - 1) / 2; total != want {
		t.Errorf("total = %d, want %d", total, want)
	}
}

func TestParallelForSmallN(t *testing.T) {
	pool := New(8)
	defer pool.Close()

	var count atomic.Int32
	pool.ParallelFor(3, func(start, end int) {
		for i := start; i < end; i++ {
			count.Add(1)
		}
	})
	if count.Load() != 3 {
		t.Errorf("count = %d, want 3", count.Load())
	}
}

func TestParallelForZero(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	called := false
	pool.ParallelFor(0, func(start, end int) { called = true })
	if called {
		t.Error("callback invoked for empty range")
	}
}

func TestCloseIdempotent(t *testing.T) {
	pool := New(2)
	pool.Close()
	pool.Close()
}

func TestDefaultShared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() returned distinct pools")
	}
	if Default().NumWorkers() < 1 {
		t.Error("default pool has no workers")
	}
}
