// Package celeris is an in-process performance optimization layer: it times
// operations, caches their results, runs large item sets in bounded
// batches, and turns the collected history into statistics, alerts and
// optimization recommendations.
//
// # Overview
//
// An Optimizer owns three shared resources:
//
//   - a CacheStore with per-entry TTL and least-recently-used eviction
//   - an OperationTracker holding the metric history
//   - an alert emitter comparing every new metric against thresholds
//
// Callers wrap expensive steps with WithTracking (or the generic Track),
// process collections with ProcessBatch, and read PerformanceStats and
// Recommendations for dashboards.
//
// # Quick Start
//
//	opt, err := celeris.New(celeris.Config{
//	    Cache: celeris.CacheConfig{MaxEntries: 500, DefaultTTL: 10 * time.Minute},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer opt.Close()
//
//	analysis, err := celeris.Track(ctx, opt, "analyze-text",
//	    func(ctx context.Context) (Analysis, error) {
//	        return analyzer.Analyze(ctx, text)
//	    },
//	    celeris.WithTimeout(2*time.Second),
//	    celeris.WithCacheKey("analysis:"+digest))
//
// A cache hit returns without tracking an operation. A miss is timed and
// recorded with status success, error or timeout. The work's error is
// always returned to the caller; timeouts are reported with a distinct
// error code:
//
//	if celeris.IsTimeout(err) {
//	    // too slow, not failed
//	}
//
// # Batches
//
//	posts, err := celeris.ProcessBatch(ctx, opt, drafts, adapt,
//	    celeris.WithBatchSize(3),
//	    celeris.WithConcurrency(2),
//	    celeris.WithProgress(func(done, total int) {
//	        log.Printf("adapted %d/%d", done, total)
//	    }))
//
// Items are split into contiguous groups; at most Concurrency groups run
// per wave and the next wave starts when the current one has finished.
// Results keep the input order whatever the completion order.
//
// # Statistics
//
// Duration percentiles use the sorted sample at index floor(n*p) with no
// interpolation: for [100 200 300 400 500] ms, p50 is 300 ms and p95 is
// 500 ms. An empty history yields zero values.
//
// # Alerts
//
//	unsubscribe := opt.Subscribe(celeris.AlertListenerFunc(func(a celeris.Alert) {
//	    log.Printf("%s exceeded %d thresholds", a.Metric.OperationName, len(a.Violations))
//	}))
//	defer unsubscribe()
//
// Listeners run synchronously after the operation ends and must not block.
//
// # Concurrency Model
//
// The cache map and the history are each guarded by a mutex. Published
// PerformanceMetric values are never modified afterwards. Only the work
// passed to WithTracking blocks; lookups, appends and statistics are
// bounded by the size of the in-memory structures.
//
// # Observability
//
// The otel sub-package implements MetricsCollector with OpenTelemetry
// instruments, and the zaplog sub-package adapts a zap logger to Logger.
// HotConfig reloads thresholds, sampling and batching from a file watched
// with Argus.
//
// # Packages
//
//   - github.com/agilira/celeris: core engine
//   - github.com/agilira/celeris/otel: OpenTelemetry MetricsCollector
//   - github.com/agilira/celeris/zaplog: zap Logger adapter
//   - github.com/agilira/celeris/cmd/celeris-demo: content pipeline demo
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package celeris
