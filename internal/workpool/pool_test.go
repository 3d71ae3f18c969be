package workpool

import (
	"sync"
	"testing"
)

// TestRowRangeCoversEveryRowOnce checks that the partition touches each
// row exactly once regardless of worker count.
func TestRowRangeCoversEveryRowOnce(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 7, 16} {
		p := New(workers)

		const h = 53
		var mu sync.Mutex
		seen := make([]int, h)

		p.RowRange(h, func(y0, y1 int) {
			mu.Lock()
			defer mu.Unlock()
			for y := y0; y < y1; y++ {
				seen[y]++
			}
		})
		p.Close()

		for y, n := range seen {
			if n != 1 {
				t.Fatalf("workers=%d: row %d visited %d times", workers, y, n)
			}
		}
	}
}

// TestRowRangeZeroHeight must be a no-op.
func TestRowRangeZeroHeight(t *testing.T) {
	p := New(4)
	defer p.Close()

	called := false
	p.RowRange(0, func(y0, y1 int) { called = true })
	if called {
		t.Error("fn called for h=0")
	}
}

// TestRowRangeFewerRowsThanWorkers: chunking must not hand out empty or
// out-of-range chunks.
func TestRowRangeFewerRowsThanWorkers(t *testing.T) {
	p := New(8)
	defer p.Close()

	var mu sync.Mutex
	var total int
	p.RowRange(3, func(y0, y1 int) {
		if y0 < 0 || y1 > 3 || y0 >= y1 {
			t.Errorf("bad chunk [%d,%d)", y0, y1)
		}
		mu.Lock()
		total += y1 - y0
		mu.Unlock()
	})
	if total != 3 {
		t.Fatalf("covered %d rows, want 3", total)
	}
}

// TestRowRangeAfterClose falls back to one sequential call.
func TestRowRangeAfterClose(t *testing.T) {
	p := New(4)
	p.Close()
	p.Close() // double close is safe

	var calls, rows int
	p.RowRange(10, func(y0, y1 int) {
		calls++
		rows += y1 - y0
	})
	if calls != 1 || rows != 10 {
		t.Fatalf("closed pool: calls=%d rows=%d, want 1/10", calls, rows)
	}
}

// TestWorkersDefault verifies the NumCPU fallback is positive.
func TestWorkersDefault(t *testing.T) {
	p := New(0)
	defer p.Close()
	if p.Workers() < 1 {
		t.Fatalf("Workers() = %d", p.Workers())
	}
}

// TestRowRangeParallelSumMatchesSequential compares a parallel
// accumulation against the sequential result.
func TestRowRangeParallelSumMatchesSequential(t *testing.T) {
	const h = 101
	want := 0
	for y := 0; y < h; y++ {
		want += y * y
	}

	p := New(6)
	defer p.Close()

	var mu sync.Mutex
	got := 0
	p.RowRange(h, func(y0, y1 int) {
		part := 0
		for y := y0; y < y1; y++ {
			part += y * y
		}
		mu.Lock()
		got += part
		mu.Unlock()
	})

	if got != want {
		t.Fatalf("parallel sum = %d, want %d", got, want)
	}
}
