// mocks_test.go: manual clock and resource sampler for tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// MockTimeProvider is a manual clock. Safe for concurrent use.
type MockTimeProvider struct {
	currentTime atomic.Int64
}

func newMockTime(start int64) *MockTimeProvider {
	m := &MockTimeProvider{}
	m.currentTime.Store(start)
	return m
}

func (m *MockTimeProvider) Now() int64 {
	return m.currentTime.Load()
}

func (m *MockTimeProvider) Advance(duration time.Duration) {
	m.currentTime.Add(int64(duration))
}

// mockSampler returns a settable sample.
type mockSampler struct {
	mu     sync.Mutex
	sample ResourceSample
}

func (s *mockSampler) Sample() ResourceSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample
}

func (s *mockSampler) set(sample ResourceSample) {
	s.mu.Lock()
	s.sample = sample
	s.mu.Unlock()
}

// countingMetrics records calls for assertions.
type countingMetrics struct {
	operations  atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
	sets        atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
	alerts      atomic.Int64
}

func (c *countingMetrics) RecordOperation(name string, status Status, latencyNs int64) {
	c.operations.Add(1)
}

func (c *countingMetrics) RecordCacheGet(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *countingMetrics) RecordCacheSet() {
	c.sets.Add(1)
}

func (c *countingMetrics) RecordEviction() {
	c.evictions.Add(1)
}

func (c *countingMetrics) RecordExpiration() {
	c.expirations.Add(1)
}

func (c *countingMetrics) RecordAlert(n int) {
	c.alerts.Add(1)
}

// newTestOptimizer builds an optimizer on a mock clock and sampler and
// closes it when the test ends. config is modified in place.
func newTestOptimizer(t *testing.T, config Config) (*Optimizer, *MockTimeProvider, *mockSampler) {
	t.Helper()

	clock := newMockTime(1_000_000_000)
	sampler := &mockSampler{}
	if config.TimeProvider == nil {
		config.TimeProvider = clock
	}
	if config.ResourceSampler == nil {
		config.ResourceSampler = sampler
	}

	o, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = o.Close() })
	return o, clock, sampler
}
