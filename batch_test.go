// batch_test.go: tests for wave-based batch execution
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func seq(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i + 1
	}
	return items
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, size int
		want    []span
	}{
		{10, 3, []span{{0, 3}, {3, 6}, {6, 9}, {9, 10}}},
		{6, 3, []span{{0, 3}, {3, 6}}},
		{2, 5, []span{{0, 2}}},
		{0, 3, []span{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.size), func(t *testing.T) {
			got := partition(tt.n, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("partition(%d, %d) = %v, want %v", tt.n, tt.size, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("group %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestProcessBatch_PreservesOrder(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	// Later items finish first.
	double := func(ctx context.Context, x int) (int, error) {
		time.Sleep(time.Duration(11-x) * time.Millisecond)
		return x * 2, nil
	}

	results, err := ProcessBatch(context.Background(), o, seq(10), double,
		WithBatchSize(3), WithConcurrency(2))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	want := []int{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}
	if len(results) != len(want) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(want))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %d, want %d", i, results[i], want[i])
		}
	}
}

func TestProcessBatch_Progress(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	var reports [][2]int
	_, err := ProcessBatch(context.Background(), o, seq(10),
		func(ctx context.Context, x int) (int, error) { return x, nil },
		WithBatchSize(3), WithConcurrency(2),
		WithProgress(func(completed, total int) {
			reports = append(reports, [2]int{completed, total})
		}))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	want := [][2]int{{6, 10}, {10, 10}}
	if len(reports) != len(want) {
		t.Fatalf("progress reports = %v, want %v", reports, want)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Errorf("report %d = %v, want %v", i, reports[i], want[i])
		}
	}
}

func TestProcessBatch_WavesAreSequential(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	var inFlight, maxInFlight, finished atomic.Int32
	var mu sync.Mutex
	finishedAtStart := make(map[int]int32)

	fn := func(ctx context.Context, x int) (int, error) {
		mu.Lock()
		finishedAtStart[x] = finished.Load()
		mu.Unlock()

		cur := inFlight.Add(1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		finished.Add(1)
		return x, nil
	}

	_, err := ProcessBatch(context.Background(), o, seq(10), fn, WithBatchSize(3), WithConcurrency(2))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if maxInFlight.Load() > 6 {
		t.Errorf("max in-flight items = %d, want <= batch size * concurrency (6)", maxInFlight.Load())
	}
	for x := 7; x <= 10; x++ {
		if finishedAtStart[x] < 6 {
			t.Errorf("item %d of the second wave started with only %d items finished", x, finishedAtStart[x])
		}
	}
}

func TestProcessBatch_FailureStopsLaterWaves(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})
	cause := errors.New("adapter rejected item")

	var mu sync.Mutex
	seen := make(map[int]bool)
	fn := func(ctx context.Context, x int) (int, error) {
		mu.Lock()
		seen[x] = true
		mu.Unlock()
		if x == 2 || x == 5 {
			return 0, cause
		}
		return x, nil
	}

	results, err := ProcessBatch(context.Background(), o, seq(10), fn,
		WithBatchSize(3), WithConcurrency(2), WithBatchName("adapt"))

	if !IsBatchError(err) {
		t.Fatalf("err = %v, want batch error", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("batch error should wrap the group error, got %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil on failure", results)
	}

	ctx := GetErrorContext(err)
	if ctx["batch"] != "adapt" || ctx["group"] != 0 || ctx["first_item"] != 0 || ctx["last_item"] != 2 {
		t.Errorf("Unexpected error context: %v", ctx)
	}

	for x := 1; x <= 6; x++ {
		if !seen[x] {
			t.Errorf("item %d of the failing wave should still run", x)
		}
	}
	for x := 7; x <= 10; x++ {
		if seen[x] {
			t.Errorf("item %d belongs to a later wave and must not run", x)
		}
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	results, err := ProcessBatch(context.Background(), o, []string{},
		func(ctx context.Context, s string) (string, error) { return s, nil })
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %v, want empty slice", results)
	}
	if n := len(o.History()); n != 0 {
		t.Errorf("Empty batch should track nothing, history length = %d", n)
	}
}

func TestProcessBatch_TracksGroups(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	_, err := ProcessBatch(context.Background(), o, seq(7),
		func(ctx context.Context, x int) (int, error) { return x, nil },
		WithBatchSize(3), WithConcurrency(5), WithBatchName("posts"))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	history := o.History()
	if len(history) != 3 {
		t.Fatalf("History length = %d, want 3 groups", len(history))
	}

	sizes := make(map[string]interface{})
	for _, m := range history {
		if !strings.HasPrefix(m.OperationName, "batch:posts:group-") {
			t.Errorf("Unexpected operation name %q", m.OperationName)
		}
		sizes[m.OperationName] = m.Metadata["group_size"]
	}
	if sizes["batch:posts:group-2"] != 1 {
		t.Errorf("group-2 size = %v, want 1", sizes["batch:posts:group-2"])
	}
}

func TestProcessBatch_DefaultsFromConfig(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{
		Optimization: OptimizationConfig{BatchSize: 4, ConcurrencyLimit: 1},
	})

	var reports []int
	_, err := ProcessBatch(context.Background(), o, seq(10),
		func(ctx context.Context, x int) (int, error) { return x, nil },
		WithProgress(func(completed, total int) { reports = append(reports, completed) }))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	want := []int{4, 8, 10}
	if fmt.Sprint(reports) != fmt.Sprint(want) {
		t.Errorf("progress = %v, want %v", reports, want)
	}
}

func TestProcessBatch_Retry(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{
		Optimization: OptimizationConfig{RetryInitialInterval: time.Millisecond},
	})

	var attempts atomic.Int32
	fn := func(ctx context.Context, x int) (int, error) {
		if x == 1 && attempts.Add(1) < 3 {
			return 0, errors.New("transient")
		}
		return x * 10, nil
	}

	results, err := ProcessBatch(context.Background(), o, seq(2), fn,
		WithBatchSize(2), WithRetryAttempts(3))
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if results[0] != 10 || results[1] != 20 {
		t.Errorf("results = %v, want [10 20]", results)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}

	var failed, succeeded int
	for _, m := range o.History() {
		switch m.Status {
		case StatusError:
			failed++
		case StatusSuccess:
			succeeded++
		}
	}
	if failed != 2 || succeeded != 1 {
		t.Errorf("tracked attempts: %d failed, %d succeeded; want 2 and 1", failed, succeeded)
	}
}

func TestProcessBatch_RetriesExhausted(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{
		Optimization: OptimizationConfig{RetryInitialInterval: time.Millisecond},
	})

	var attempts atomic.Int32
	_, err := ProcessBatch(context.Background(), o, seq(1),
		func(ctx context.Context, x int) (int, error) {
			attempts.Add(1)
			return 0, errors.New("permanent")
		}, WithRetryAttempts(2))

	if !IsBatchError(err) {
		t.Fatalf("err = %v, want batch error", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 1 + 2 retries", attempts.Load())
	}
}

func TestProcessBatch_TimeoutNotRetried(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{
		Optimization: OptimizationConfig{RetryInitialInterval: time.Millisecond},
	})

	var attempts atomic.Int32
	_, err := ProcessBatch(context.Background(), o, seq(1),
		func(ctx context.Context, x int) (int, error) {
			attempts.Add(1)
			return 0, NewErrOperationTimeout("upstream", time.Second)
		}, WithRetryAttempts(3))

	if !IsBatchError(err) {
		t.Fatalf("err = %v, want batch error", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, timeouts must not be retried", attempts.Load())
	}
}

func TestProcessBatch_ItemPanic(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	_, err := ProcessBatch(context.Background(), o, seq(3),
		func(ctx context.Context, x int) (int, error) {
			if x == 2 {
				panic("bad item")
			}
			return x, nil
		})

	if !IsBatchError(err) {
		t.Fatalf("err = %v, want batch error", err)
	}
	if !IsPanic(errors.Unwrap(err)) {
		t.Errorf("batch error should carry the recovered panic, got %v", errors.Unwrap(err))
	}
}

func TestProcessBatch_Closed(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})
	_ = o.Close()

	_, err := ProcessBatch(context.Background(), o, seq(3),
		func(ctx context.Context, x int) (int, error) { return x, nil },
		WithRetryAttempts(3))
	if !IsBatchError(err) {
		t.Fatalf("err = %v, want batch error", err)
	}
	if !IsClosed(errors.Unwrap(err)) {
		t.Errorf("batch error should carry the closed cause, got %v", err)
	}
}
