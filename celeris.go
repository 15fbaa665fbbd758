// celeris.go: version and default tuning constants
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import "time"

const (
	// Version of the celeris engine
	Version = "v0.1.0-dev"

	// DefaultMaxEntries is the default maximum number of cache entries
	DefaultMaxEntries = 1000

	// DefaultTTL is the default time-to-live of a cache entry
	DefaultTTL = time.Hour

	// DefaultCleanupInterval is how often expired cache entries are swept
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultSampleRate records every completed operation in history
	DefaultSampleRate = 1.0

	// DefaultMemoryThreshold is the heap size (bytes) above which an alert fires
	DefaultMemoryThreshold = 512 << 20

	// DefaultCPUPercentThreshold is the per-operation CPU usage above which an alert fires
	DefaultCPUPercentThreshold = 80.0

	// DefaultDurationThreshold is the operation duration above which an alert fires
	DefaultDurationThreshold = 30 * time.Second

	// DefaultRetentionDays is how long metrics are kept in history
	DefaultRetentionDays = 7

	// DefaultRetentionSweepInterval is how often the history retention sweep runs
	DefaultRetentionSweepInterval = 24 * time.Hour

	// DefaultBatchSize is the default number of items per batch group
	DefaultBatchSize = 10

	// DefaultConcurrencyLimit is the default number of groups in flight per wave
	DefaultConcurrencyLimit = 5

	// DefaultTimeout is the default deadline of a tracked operation
	DefaultTimeout = 30 * time.Second

	// DefaultRetryInitialInterval is the first backoff delay between batch group retries
	DefaultRetryInitialInterval = 100 * time.Millisecond

	// DefaultSlowOperationThreshold is the mean duration above which caching is recommended
	DefaultSlowOperationThreshold = 10 * time.Second

	// DefaultRecommendationWindow is the history slice evaluated by Recommendations
	DefaultRecommendationWindow = time.Hour
)
