// optimizer.go: engine construction, accessors and shutdown
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"sync"
	"sync/atomic"
	"time"
)

// Optimizer owns one cache store, one operation tracker and one alert
// emitter. Construct it with New, pass it to the code that needs it, and
// release it with Close.
type Optimizer struct {
	cache   *CacheStore
	tracker *OperationTracker
	alerts  *alertEmitter

	// mu guards the runtime-tunable part of config.Optimization
	mu     sync.RWMutex
	config Config

	janitor *janitor
	closed  atomic.Bool
}

// New creates an optimizer and starts its background sweeps.
// Partial configurations are accepted: omitted fields take their defaults.
func New(config Config) (*Optimizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	emitter := newAlertEmitter(config.Monitoring.AlertThresholds, config.Logger, config.MetricsCollector)
	o := &Optimizer{
		cache:   NewCacheStore(config),
		tracker: newOperationTracker(config, emitter),
		alerts:  emitter,
		config:  config,
	}
	o.janitor = startJanitor(o, config)

	config.Logger.Info("optimizer started",
		"max_entries", config.Cache.MaxEntries,
		"batch_size", config.Optimization.BatchSize,
		"concurrency", config.Optimization.ConcurrencyLimit)
	return o, nil
}

var (
	defaultOnce      sync.Once
	defaultOptimizer *Optimizer
)

// Default returns a lazily created process-wide optimizer with the default
// configuration. It is a convenience for small programs; libraries should
// accept an *Optimizer from their caller instead.
func Default() *Optimizer {
	defaultOnce.Do(func() {
		defaultOptimizer, _ = New(DefaultConfig())
	})
	return defaultOptimizer
}

// Cache returns the optimizer's cache store.
func (o *Optimizer) Cache() *CacheStore {
	return o.cache
}

// Tracker returns the optimizer's operation tracker.
func (o *Optimizer) Tracker() *OperationTracker {
	return o.tracker
}

// Subscribe registers an alert listener and returns a function that
// removes it. Calling the returned function more than once is harmless.
func (o *Optimizer) Subscribe(l AlertListener) (unsubscribe func()) {
	return o.alerts.subscribe(l)
}

// SetAlertThresholds replaces the alert thresholds. Zero fields take defaults.
func (o *Optimizer) SetAlertThresholds(t AlertThresholds) {
	o.alerts.setThresholds(t)
}

// AlertThresholds returns the thresholds currently in effect.
func (o *Optimizer) AlertThresholds() AlertThresholds {
	return o.alerts.getThresholds()
}

// StartOperation registers an active operation on the tracker.
func (o *Optimizer) StartOperation(id, name string) {
	o.tracker.StartOperation(id, name)
}

// EndOperation completes an active operation on the tracker.
func (o *Optimizer) EndOperation(id string, status Status, metadata map[string]interface{}) (PerformanceMetric, bool) {
	return o.tracker.EndOperation(id, status, metadata)
}

// History returns a copy of the retained metrics.
func (o *Optimizer) History() []PerformanceMetric {
	return o.tracker.History()
}

// OptimizationConfig returns the batching and execution settings in effect.
func (o *Optimizer) OptimizationConfig() OptimizationConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.config.Optimization
}

// setOptimizationConfig installs new batching and execution settings.
func (o *Optimizer) setOptimizationConfig(c OptimizationConfig) {
	o.mu.Lock()
	o.config.Optimization = c
	o.mu.Unlock()
}

// now returns the optimizer clock as a time.Time.
func (o *Optimizer) now() time.Time {
	return time.Unix(0, o.config.TimeProvider.Now())
}

// Close stops the background sweeps and releases cached values and history.
// It is safe to call more than once.
func (o *Optimizer) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	o.janitor.stop()
	o.cache.clear()
	o.tracker.reset()
	o.config.Logger.Info("optimizer closed")
	return nil
}
