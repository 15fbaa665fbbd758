// race_test.go: data race tests for celeris
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"
)

// TestRaceConditions_CacheSetGetInvalidate mixes every cache operation across goroutines
func TestRaceConditions_CacheSetGetInvalidate(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{Cache: CacheConfig{MaxEntries: 100}})
	cache := o.Cache()

	const numGoroutines = 50
	const numOperations = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := "k" + strconv.Itoa((id*numOperations+j)%200)
				switch j % 5 {
				case 0, 1:
					cache.Set(key, j)
				case 2:
					cache.Get(key)
				case 3:
					cache.Has(key)
				case 4:
					if j%50 == 4 {
						_, _ = cache.Invalidate("k1")
					}
					cache.Stats()
				}
			}
		}(i)
	}
	wg.Wait()

	if n := cache.Len(); n < 0 || n > 100 {
		t.Errorf("Cache size corrupted: %d", n)
	}
}

// TestRaceConditions_ConcurrentTracking runs tracked work while reading statistics
func TestRaceConditions_ConcurrentTracking(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})
	o.Subscribe(AlertListenerFunc(func(Alert) {}))

	const numGoroutines = 20
	const numOperations = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines + 1)

	stop := make(chan struct{})
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				o.PerformanceStats()
				o.Recommendations()
				o.History()
			}
		}
	}()

	var workers sync.WaitGroup
	workers.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			defer workers.Done()
			for j := 0; j < numOperations; j++ {
				_, _ = o.WithTracking(context.Background(), "op", func(ctx context.Context) (interface{}, error) {
					return j, nil
				}, WithCacheKey(fmt.Sprintf("key-%d", j%10)))
			}
		}(i)
	}
	workers.Wait()
	close(stop)
	wg.Wait()

	stats := o.PerformanceStats()
	if stats.ActiveOperations != 0 {
		t.Errorf("ActiveOperations = %d after all work finished", stats.ActiveOperations)
	}
}

// TestRaceConditions_BatchWithReload applies runtime configuration during batches
func TestRaceConditions_BatchWithReload(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			cfg := o.runtimeConfig()
			cfg.Optimization.BatchSize = 1 + i%5
			cfg.SampleRate = 0.5 + float64(i%2)/2
			o.applyRuntimeConfig(cfg)
			time.Sleep(time.Millisecond)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			results, err := ProcessBatch(context.Background(), o, seq(20),
				func(ctx context.Context, x int) (int, error) { return x, nil })
			if err != nil {
				t.Errorf("ProcessBatch() error = %v", err)
				return
			}
			for k, r := range results {
				if r != k+1 {
					t.Errorf("results[%d] = %d", k, r)
					return
				}
			}
		}
	}()

	wg.Wait()
}

// TestRaceConditions_SubscribeDuringAlerts adds and removes listeners while alerts fire
func TestRaceConditions_SubscribeDuringAlerts(t *testing.T) {
	o, clock, _ := newTestOptimizer(t, Config{
		Monitoring: MonitoringConfig{AlertThresholds: AlertThresholds{Duration: time.Nanosecond}},
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			unsubscribe := o.Subscribe(AlertListenerFunc(func(Alert) {}))
			unsubscribe()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id := NewOperationID("slow")
			o.StartOperation(id, "slow")
			clock.Advance(time.Millisecond)
			o.EndOperation(id, StatusSuccess, nil)
		}
	}()
	wg.Wait()
}
