package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelizeN_CoversEveryItemOnce(t *testing.T) {
	tests := []struct {
		name    string
		items   int
		workers int
	}{
		{name: "more items than workers", items: 103, workers: 4},
		{name: "more workers than items", items: 3, workers: 16},
		{name: "default workers", items: 50, workers: 0},
		{name: "single item", items: 1, workers: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.items)
			ParallelizeN(tt.items, tt.workers, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("item %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestParallelize_ZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	if called {
		t.Error("fn should not be called for zero items")
	}
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 10 {
			t.Errorf("range = [%d, %d), want [0, 10)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
