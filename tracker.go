// tracker.go: start/end bookkeeping for tracked operations
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"maps"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a tracked operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// PerformanceMetric is the immutable record of one completed operation.
type PerformanceMetric struct {
	Timestamp     time.Time
	OperationID   string
	OperationName string
	Duration      time.Duration

	// Memory is the process-wide snapshot taken at completion
	Memory MemoryUsage

	// CPU is the process CPU time consumed while the operation was active
	CPU CPUUsage

	Status   Status
	Metadata map[string]interface{}
}

// activeOperation lives between StartOperation and EndOperation.
type activeOperation struct {
	name      string
	startedAt int64
	cpuStart  CPUUsage
}

// OperationTracker times named operations and keeps the metric history.
// All methods are safe for concurrent use.
type OperationTracker struct {
	mu      sync.Mutex
	active  map[string]activeOperation
	history []PerformanceMetric

	retention  time.Duration
	sampleRate atomic.Uint64 // math.Float64bits

	timeProvider TimeProvider
	sampler      ResourceSampler
	logger       Logger
	metrics      MetricsCollector
	emitter      *alertEmitter
}

func newOperationTracker(config Config, emitter *alertEmitter) *OperationTracker {
	t := &OperationTracker{
		active:       make(map[string]activeOperation),
		retention:    time.Duration(config.Monitoring.RetentionDays) * 24 * time.Hour,
		timeProvider: config.TimeProvider,
		sampler:      config.ResourceSampler,
		logger:       config.Logger,
		metrics:      config.MetricsCollector,
		emitter:      emitter,
	}
	t.setSampleRate(config.Monitoring.SampleRate)
	return t
}

// NewOperationID returns a unique id for an operation named name.
func NewOperationID(name string) string {
	return name + "-" + uuid.NewString()
}

// StartOperation registers an active operation. Starting an id that is
// already active is a caller error: it is logged and the new start wins.
func (t *OperationTracker) StartOperation(id, name string) {
	op := activeOperation{
		name:      name,
		startedAt: t.timeProvider.Now(),
		cpuStart:  t.sampler.Sample().CPU,
	}

	t.mu.Lock()
	_, duplicate := t.active[id]
	t.active[id] = op
	t.mu.Unlock()

	if duplicate {
		t.logger.Warn("operation started twice, restarting", "operation_id", id, "operation", name)
	}
}

// EndOperation completes an active operation and returns its metric.
// An unknown id (never started or already ended) returns false and has
// no side effect. Alerts are evaluated before EndOperation returns.
func (t *OperationTracker) EndOperation(id string, status Status, metadata map[string]interface{}) (PerformanceMetric, bool) {
	t.mu.Lock()
	op, ok := t.active[id]
	if ok {
		delete(t.active, id)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Debug("end of unknown operation ignored", "operation_id", id)
		return PerformanceMetric{}, false
	}

	now := t.timeProvider.Now()
	sample := t.sampler.Sample()
	duration := time.Duration(now - op.startedAt)
	if duration < 0 {
		duration = 0
	}

	metric := PerformanceMetric{
		Timestamp:     time.Unix(0, now),
		OperationID:   id,
		OperationName: op.name,
		Duration:      duration,
		Memory:        sample.Memory,
		CPU:           sample.CPU.sub(op.cpuStart),
		Status:        status,
		Metadata:      maps.Clone(metadata),
	}

	// Published metrics never share a map with the caller or each other.
	if t.sampled() {
		stored := metric
		stored.Metadata = maps.Clone(metric.Metadata)
		t.mu.Lock()
		t.history = append(t.history, stored)
		t.mu.Unlock()
	}

	t.metrics.RecordOperation(op.name, status, int64(duration))
	t.emitter.check(metric)

	return metric, true
}

// ActiveOperations returns the number of operations in flight.
func (t *OperationTracker) ActiveOperations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// History returns a copy of the retained metrics in completion order.
func (t *OperationTracker) History() []PerformanceMetric {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]PerformanceMetric, len(t.history))
	copy(out, t.history)
	for i := range out {
		out[i].Metadata = maps.Clone(out[i].Metadata)
	}
	return out
}

// since returns the retained metrics with a timestamp at or after cutoff.
func (t *OperationTracker) since(cutoff time.Time) []PerformanceMetric {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []PerformanceMetric
	for _, m := range t.history {
		if !m.Timestamp.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// PruneHistory drops metrics older than the retention window and returns
// how many were removed.
func (t *OperationTracker) PruneHistory() int {
	cutoff := time.Unix(0, t.timeProvider.Now()).Add(-t.retention)

	t.mu.Lock()
	kept := make([]PerformanceMetric, 0, len(t.history))
	for _, m := range t.history {
		if !m.Timestamp.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	pruned := len(t.history) - len(kept)
	t.history = kept
	t.mu.Unlock()

	if pruned > 0 {
		t.logger.Info("metric history pruned", "removed", pruned, "kept", len(kept))
	}
	return pruned
}

// reset drops active operations and history. Used on Close.
func (t *OperationTracker) reset() {
	t.mu.Lock()
	t.active = make(map[string]activeOperation)
	t.history = nil
	t.mu.Unlock()
}

func (t *OperationTracker) setSampleRate(rate float64) {
	if rate <= 0 || rate > 1 {
		rate = DefaultSampleRate
	}
	t.sampleRate.Store(math.Float64bits(rate))
}

func (t *OperationTracker) getSampleRate() float64 {
	return math.Float64frombits(t.sampleRate.Load())
}

func (t *OperationTracker) sampled() bool {
	rate := math.Float64frombits(t.sampleRate.Load())
	return rate >= 1 || rand.Float64() < rate
}
