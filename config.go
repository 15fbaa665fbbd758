// config.go: configuration for celeris
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Config holds configuration parameters for the optimizer.
// Every field is optional: Validate replaces zero values with defaults.
type Config struct {
	// Cache configures the result cache.
	Cache CacheConfig

	// Monitoring configures operation tracking, history retention and alerts.
	Monitoring MonitoringConfig

	// Optimization configures tracked execution and batch processing.
	Optimization OptimizationConfig

	// Logger is used for debugging and monitoring.
	// If nil, NoOpLogger is used. Default: NoOpLogger.
	Logger Logger

	// TimeProvider provides current time for TTL, durations and retention.
	// If nil, a go-timecache backed implementation is used.
	TimeProvider TimeProvider

	// MetricsCollector receives operation, cache and alert events.
	// If nil, NoOpMetricsCollector is used (zero overhead).
	MetricsCollector MetricsCollector

	// ResourceSampler samples process memory and CPU.
	// If nil, the runtime/gopsutil backed process sampler is used.
	ResourceSampler ResourceSampler

	// OnEvict is called when an entry is evicted from the cache (LRU).
	// This callback must be fast and non-blocking.
	OnEvict func(key string, value interface{})

	// OnExpire is called when an entry expires (TTL-based removal).
	// This callback must be fast and non-blocking.
	OnExpire func(key string, value interface{})

	// OnSystemSample is called with every periodic system sample
	// when Monitoring.SampleInterval > 0.
	OnSystemSample func(sample SystemSample)
}

// CacheConfig configures the cache store.
type CacheConfig struct {
	// MaxEntries is the maximum number of entries. Default: DefaultMaxEntries.
	MaxEntries int

	// DefaultTTL is used when Set is called without a TTL. Default: DefaultTTL.
	DefaultTTL time.Duration

	// CleanupInterval is how often expired entries are swept. Default: DefaultCleanupInterval.
	CleanupInterval time.Duration
}

// MonitoringConfig configures the operation tracker and alerting.
type MonitoringConfig struct {
	// SampleRate is the fraction of completed operations kept in history.
	// Must be in (0, 1]. Default: DefaultSampleRate.
	SampleRate float64

	// AlertThresholds are compared against every completed operation.
	AlertThresholds AlertThresholds

	// RetentionDays is how many days of history are kept. Default: DefaultRetentionDays.
	RetentionDays int

	// RetentionSweepInterval is how often old metrics are pruned.
	// Default: DefaultRetentionSweepInterval.
	RetentionSweepInterval time.Duration

	// SampleInterval enables periodic system samples when > 0. Default: disabled.
	SampleInterval time.Duration
}

// AlertThresholds holds the alerting limits. A zero field takes its default.
type AlertThresholds struct {
	// MemoryBytes is the heap-in-use limit. Default: DefaultMemoryThreshold.
	MemoryBytes uint64

	// CPUPercent is the per-operation CPU usage limit. Default: DefaultCPUPercentThreshold.
	CPUPercent float64

	// Duration is the operation duration limit. Default: DefaultDurationThreshold.
	Duration time.Duration
}

// OptimizationConfig configures tracked execution and batching.
type OptimizationConfig struct {
	// BatchSize is the number of items per batch group. Default: DefaultBatchSize.
	BatchSize int

	// ConcurrencyLimit is the number of groups per wave. Default: DefaultConcurrencyLimit.
	ConcurrencyLimit int

	// Timeout is the deadline applied by WithTracking when the caller
	// does not pass WithTimeout. Default: DefaultTimeout.
	Timeout time.Duration

	// RetryAttempts is how many times a failed batch group is retried.
	// Default: 0 (no retries).
	RetryAttempts int

	// RetryInitialInterval is the first backoff delay between retries.
	// Default: DefaultRetryInitialInterval.
	RetryInitialInterval time.Duration

	// SlowOperationThreshold is the mean duration above which caching
	// is recommended. Default: DefaultSlowOperationThreshold.
	SlowOperationThreshold time.Duration

	// RecommendationWindow is the history slice analysed by Recommendations.
	// Default: DefaultRecommendationWindow.
	RecommendationWindow time.Duration
}

// Validate checks configuration parameters and applies sensible defaults.
// Returns nil (no actual validation errors, only normalization).
//
// This method is automatically called by New, so you typically don't need
// to call it manually.
func (c *Config) Validate() error {
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultMaxEntries
	}
	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = DefaultTTL
	}
	if c.Cache.CleanupInterval <= 0 {
		c.Cache.CleanupInterval = DefaultCleanupInterval
	}

	if c.Monitoring.SampleRate <= 0 || c.Monitoring.SampleRate > 1 {
		c.Monitoring.SampleRate = DefaultSampleRate
	}
	c.Monitoring.AlertThresholds = c.Monitoring.AlertThresholds.withDefaults()
	if c.Monitoring.RetentionDays <= 0 {
		c.Monitoring.RetentionDays = DefaultRetentionDays
	}
	if c.Monitoring.RetentionSweepInterval <= 0 {
		c.Monitoring.RetentionSweepInterval = DefaultRetentionSweepInterval
	}
	if c.Monitoring.SampleInterval < 0 {
		c.Monitoring.SampleInterval = 0
	}

	if c.Optimization.BatchSize <= 0 {
		c.Optimization.BatchSize = DefaultBatchSize
	}
	if c.Optimization.ConcurrencyLimit <= 0 {
		c.Optimization.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	if c.Optimization.Timeout <= 0 {
		c.Optimization.Timeout = DefaultTimeout
	}
	if c.Optimization.RetryAttempts < 0 {
		c.Optimization.RetryAttempts = 0
	}
	if c.Optimization.RetryInitialInterval <= 0 {
		c.Optimization.RetryInitialInterval = DefaultRetryInitialInterval
	}
	if c.Optimization.SlowOperationThreshold <= 0 {
		c.Optimization.SlowOperationThreshold = DefaultSlowOperationThreshold
	}
	if c.Optimization.RecommendationWindow <= 0 {
		c.Optimization.RecommendationWindow = DefaultRecommendationWindow
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	if c.ResourceSampler == nil {
		c.ResourceSampler = newProcessSampler(c.Logger)
	}

	return nil
}

func (t AlertThresholds) withDefaults() AlertThresholds {
	if t.MemoryBytes == 0 {
		t.MemoryBytes = DefaultMemoryThreshold
	}
	if t.CPUPercent <= 0 {
		t.CPUPercent = DefaultCPUPercentThreshold
	}
	if t.Duration <= 0 {
		t.Duration = DefaultDurationThreshold
	}
	return t
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			MaxEntries:      DefaultMaxEntries,
			DefaultTTL:      DefaultTTL,
			CleanupInterval: DefaultCleanupInterval,
		},
		Monitoring: MonitoringConfig{
			SampleRate: DefaultSampleRate,
			AlertThresholds: AlertThresholds{
				MemoryBytes: DefaultMemoryThreshold,
				CPUPercent:  DefaultCPUPercentThreshold,
				Duration:    DefaultDurationThreshold,
			},
			RetentionDays:          DefaultRetentionDays,
			RetentionSweepInterval: DefaultRetentionSweepInterval,
		},
		Optimization: OptimizationConfig{
			BatchSize:              DefaultBatchSize,
			ConcurrencyLimit:       DefaultConcurrencyLimit,
			Timeout:                DefaultTimeout,
			RetryInitialInterval:   DefaultRetryInitialInterval,
			SlowOperationThreshold: DefaultSlowOperationThreshold,
			RecommendationWindow:   DefaultRecommendationWindow,
		},
		Logger:           NoOpLogger{},
		TimeProvider:     &systemTimeProvider{},
		MetricsCollector: NoOpMetricsCollector{},
	}
}

// systemTimeProvider is the default time provider using go-timecache.
// This provides much faster time access compared to time.Now() with zero allocations.
type systemTimeProvider struct{}

func (t *systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
