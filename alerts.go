// alerts.go: threshold checks and alert delivery
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

// minCPUWindow is the shortest operation evaluated against the CPU
// threshold; below it the process CPU clock resolution dominates.
const minCPUWindow = 100 * time.Millisecond

// ViolationKind names the threshold that was exceeded.
type ViolationKind string

const (
	ViolationDuration ViolationKind = "duration"
	ViolationMemory   ViolationKind = "memory"
	ViolationCPU      ViolationKind = "cpu"
)

// Violation describes one exceeded threshold.
type Violation struct {
	Kind      ViolationKind
	Threshold float64
	Actual    float64
}

// Alert is delivered to every AlertListener when a completed operation
// exceeds at least one threshold.
type Alert struct {
	Metric     PerformanceMetric
	Violations []Violation
}

// alertEmitter compares metrics against thresholds and notifies listeners.
// It holds no state besides the thresholds and the listener set.
type alertEmitter struct {
	thresholds atomic.Pointer[AlertThresholds]

	mu        sync.RWMutex
	listeners map[uint64]AlertListener
	nextID    uint64

	logger  Logger
	metrics MetricsCollector
}

func newAlertEmitter(thresholds AlertThresholds, logger Logger, metrics MetricsCollector) *alertEmitter {
	e := &alertEmitter{
		listeners: make(map[uint64]AlertListener),
		logger:    logger,
		metrics:   metrics,
	}
	e.setThresholds(thresholds)
	return e
}

func (e *alertEmitter) setThresholds(t AlertThresholds) {
	t = t.withDefaults()
	e.thresholds.Store(&t)
}

func (e *alertEmitter) getThresholds() AlertThresholds {
	return *e.thresholds.Load()
}

// subscribe registers l and returns a function removing it.
func (e *alertEmitter) subscribe(l AlertListener) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// violations returns the thresholds m exceeds, in duration, memory, cpu order.
func (e *alertEmitter) violations(m PerformanceMetric) []Violation {
	t := e.getThresholds()

	var out []Violation
	if m.Duration > t.Duration {
		out = append(out, Violation{
			Kind:      ViolationDuration,
			Threshold: float64(t.Duration.Milliseconds()),
			Actual:    float64(m.Duration.Milliseconds()),
		})
	}
	if m.Memory.HeapUsed > t.MemoryBytes {
		out = append(out, Violation{
			Kind:      ViolationMemory,
			Threshold: float64(t.MemoryBytes),
			Actual:    float64(m.Memory.HeapUsed),
		})
	}
	if m.Duration >= minCPUWindow {
		if pct := cpuPercent(m.CPU, m.Duration); pct > t.CPUPercent {
			out = append(out, Violation{
				Kind:      ViolationCPU,
				Threshold: t.CPUPercent,
				Actual:    pct,
			})
		}
	}
	return out
}

// check emits an alert for m if any threshold is exceeded.
// Listener panics are recovered; the originating operation is never affected.
func (e *alertEmitter) check(m PerformanceMetric) {
	violations := e.violations(m)
	if len(violations) == 0 {
		return
	}

	alert := Alert{Metric: m, Violations: violations}
	e.metrics.RecordAlert(len(violations))
	e.logger.Warn("performance threshold exceeded",
		"operation", m.OperationName,
		"operation_id", m.OperationID,
		"violations", len(violations))

	e.mu.RLock()
	listeners := make([]AlertListener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.RUnlock()

	for _, l := range listeners {
		e.deliver(l, alert)
	}
}

func (e *alertEmitter) deliver(l AlertListener, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("alert listener panicked",
				"operation", alert.Metric.OperationName,
				"error", NewErrPanicRecovered("OnAlert", r))
		}
	}()
	l.OnAlert(alert)
}
