// janitor.go: background cache cleanup, history retention and system sampling
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"runtime"
	"sync"
	"time"
)

// janitor runs the periodic sweeps of one optimizer on a single goroutine.
type janitor struct {
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// startJanitor takes cfg by value: the optimizer's own copy is rewritten
// by hot reload while the goroutine runs.
func startJanitor(o *Optimizer, cfg Config) *janitor {
	j := &janitor{stopCh: make(chan struct{})}
	j.wg.Add(1)
	go j.run(o, cfg)
	return j
}

func (j *janitor) run(o *Optimizer, cfg Config) {
	defer j.wg.Done()

	cleanup := time.NewTicker(cfg.Cache.CleanupInterval)
	defer cleanup.Stop()
	retention := time.NewTicker(cfg.Monitoring.RetentionSweepInterval)
	defer retention.Stop()

	// A nil channel never fires, which disables system sampling.
	var sampleC <-chan time.Time
	if cfg.Monitoring.SampleInterval > 0 && cfg.OnSystemSample != nil {
		t := time.NewTicker(cfg.Monitoring.SampleInterval)
		defer t.Stop()
		sampleC = t.C
	}

	last := cfg.ResourceSampler.Sample()
	lastAt := cfg.TimeProvider.Now()

	for {
		select {
		case <-j.stopCh:
			return
		case <-cleanup.C:
			if n := o.cache.CleanupExpired(); n > 0 {
				cfg.Logger.Debug("expired cache entries swept", "removed", n)
			}
		case <-retention.C:
			o.tracker.PruneHistory()
		case <-sampleC:
			sample := cfg.ResourceSampler.Sample()
			now := cfg.TimeProvider.Now()
			cfg.OnSystemSample(SystemSample{
				Timestamp:        time.Unix(0, now),
				Memory:           sample.Memory,
				CPUPercent:       cpuPercent(sample.CPU.sub(last.CPU), time.Duration(now-lastAt)),
				Goroutines:       runtime.NumGoroutine(),
				ActiveOperations: o.tracker.ActiveOperations(),
			})
			last, lastAt = sample, now
		}
	}
}

// stop signals the goroutine and waits for it to exit.
func (j *janitor) stop() {
	j.once.Do(func() {
		close(j.stopCh)
	})
	j.wg.Wait()
}
