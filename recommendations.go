// recommendations.go: rule-based optimization suggestions
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"fmt"
	"sort"
	"time"
)

// Category groups recommendations by the kind of change they suggest.
type Category string

const (
	CategoryCache       Category = "cache"
	CategoryBatch       Category = "batch"
	CategoryConcurrency Category = "concurrency"
	CategoryAlgorithm   Category = "algorithm"
	CategoryMemory      Category = "memory"
)

// Priority ranks how urgent a recommendation is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Effort estimates the work needed to apply a recommendation.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

const (
	// maxErrorRate is the error+timeout share above which error handling is flagged
	maxErrorRate = 0.05

	// batchingCandidateCount is the per-name occurrence count above which batching is suggested
	batchingCandidateCount = 50
)

// Recommendation is a derived suggestion; it is recomputed on every call.
type Recommendation struct {
	Category    Category
	Priority    Priority
	Description string

	// ExpectedImprovement is the estimated gain as a fraction in [0, 1]
	ExpectedImprovement float64

	SuggestedAction string
	Effort          Effort
}

// Recommendations evaluates the rule set against the metrics of the
// recommendation window (default: last hour). Rules are independent and
// the result follows rule order: slow operations, memory, error rate,
// repeated operations.
func (o *Optimizer) Recommendations() []Recommendation {
	cfg := o.OptimizationConfig()
	window := o.tracker.since(o.now().Add(-cfg.RecommendationWindow))
	return recommend(window, cfg.SlowOperationThreshold, o.alerts.getThresholds().MemoryBytes)
}

func recommend(window []PerformanceMetric, slowThreshold time.Duration, memoryThreshold uint64) []Recommendation {
	recs := []Recommendation{}
	if len(window) == 0 {
		return recs
	}

	stats := summarize(window)

	if stats.Duration.Mean > slowThreshold {
		recs = append(recs, Recommendation{
			Category:            CategoryCache,
			Priority:            PriorityHigh,
			Description:         fmt.Sprintf("mean operation duration %s exceeds %s", stats.Duration.Mean, slowThreshold),
			ExpectedImprovement: 0.6,
			SuggestedAction:     "cache results of slow operations with WithCacheKey",
			Effort:              EffortLow,
		})
	}

	if stats.Memory.MeanHeapUsed > memoryThreshold {
		recs = append(recs, Recommendation{
			Category:            CategoryMemory,
			Priority:            PriorityCritical,
			Description:         fmt.Sprintf("mean heap in use %d bytes exceeds %d bytes", stats.Memory.MeanHeapUsed, memoryThreshold),
			ExpectedImprovement: 0.4,
			SuggestedAction:     "reduce retained data, stream large payloads and lower cache capacity",
			Effort:              EffortMedium,
		})
	}

	errorRate := float64(stats.Failed+stats.TimedOut) / float64(stats.TotalOperations)
	if errorRate > maxErrorRate {
		recs = append(recs, Recommendation{
			Category:            CategoryAlgorithm,
			Priority:            PriorityHigh,
			Description:         fmt.Sprintf("error rate %.1f%% exceeds %.1f%%", errorRate*100, maxErrorRate*100),
			ExpectedImprovement: 0.3,
			SuggestedAction:     "add input validation, retries and fallbacks to failing operations",
			Effort:              EffortMedium,
		})
	}

	names := make([]string, 0, len(stats.OperationsByName))
	for name, count := range stats.OperationsByName {
		if count > batchingCandidateCount {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		recs = append(recs, Recommendation{
			Category:            CategoryBatch,
			Priority:            PriorityMedium,
			Description:         fmt.Sprintf("operation %q ran %d times in the window", name, stats.OperationsByName[name]),
			ExpectedImprovement: 0.25,
			SuggestedAction:     "group repeated calls with ProcessBatch",
			Effort:              EffortMedium,
		})
	}

	return recs
}
