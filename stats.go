// stats.go: aggregate statistics over the metric history
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"math"
	"sort"
	"time"
)

// DurationStats summarizes operation durations.
type DurationStats struct {
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
}

// MemoryStats summarizes the heap-in-use samples.
type MemoryStats struct {
	MeanHeapUsed uint64
	PeakHeapUsed uint64
}

// CPUStats summarizes the per-operation CPU time.
type CPUStats struct {
	Mean time.Duration
	Peak time.Duration
}

// PerformanceStats is the aggregate view of the retained history.
// With an empty history every numeric field is zero.
type PerformanceStats struct {
	TotalOperations int
	Succeeded       int
	Failed          int
	TimedOut        int

	Duration DurationStats
	Memory   MemoryStats
	CPU      CPUStats

	// OperationsByName counts retained metrics per operation name
	OperationsByName map[string]int

	ActiveOperations int
	Cache            CacheStats
}

// PerformanceStats computes statistics over the full retained history.
func (o *Optimizer) PerformanceStats() PerformanceStats {
	stats := summarize(o.tracker.History())
	stats.ActiveOperations = o.tracker.ActiveOperations()
	stats.Cache = o.cache.Stats()
	return stats
}

// summarize aggregates metrics; it never fails on an empty slice.
func summarize(metrics []PerformanceMetric) PerformanceStats {
	stats := PerformanceStats{
		TotalOperations:  len(metrics),
		OperationsByName: make(map[string]int),
	}
	if len(metrics) == 0 {
		return stats
	}

	durations := make([]time.Duration, len(metrics))
	var totalDuration, totalCPU time.Duration
	var totalHeap float64

	for i, m := range metrics {
		switch m.Status {
		case StatusSuccess:
			stats.Succeeded++
		case StatusError:
			stats.Failed++
		case StatusTimeout:
			stats.TimedOut++
		}
		stats.OperationsByName[m.OperationName]++

		durations[i] = m.Duration
		totalDuration += m.Duration

		totalHeap += float64(m.Memory.HeapUsed)
		if m.Memory.HeapUsed > stats.Memory.PeakHeapUsed {
			stats.Memory.PeakHeapUsed = m.Memory.HeapUsed
		}

		cpu := m.CPU.Total()
		totalCPU += cpu
		if cpu > stats.CPU.Peak {
			stats.CPU.Peak = cpu
		}
	}

	n := len(metrics)
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	stats.Duration = DurationStats{
		Mean: totalDuration / time.Duration(n),
		P50:  percentile(durations, 0.50),
		P95:  percentile(durations, 0.95),
		P99:  percentile(durations, 0.99),
	}
	stats.Memory.MeanHeapUsed = uint64(totalHeap / float64(n))
	stats.CPU.Mean = totalCPU / time.Duration(n)

	return stats
}

// percentile returns sorted[floor(n*p)], clamped to the last element.
// No interpolation is performed. sorted must be ascending.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(float64(n) * p))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
