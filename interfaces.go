// interfaces.go: public interfaces for celeris
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

// Logger defines a minimal logging interface with zero overhead.
// Implementations should use structured logging and be allocation-free.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing. Used as default to avoid nil checks.
type NoOpLogger struct{}

// Debug does nothing (no-op implementation).
func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}

// Info does nothing (no-op implementation).
func (NoOpLogger) Info(msg string, keyvals ...interface{}) {}

// Warn does nothing (no-op implementation).
func (NoOpLogger) Warn(msg string, keyvals ...interface{}) {}

// Error does nothing (no-op implementation).
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeProvider provides current time with caching for performance.
// This interface allows injecting optimized time implementations,
// and a manual clock in tests.
type TimeProvider interface {
	// Now returns the current time in nanoseconds since epoch.
	// This method must be very fast and allocation-free.
	Now() int64
}

// ResourceSampler takes a snapshot of process resource usage.
// The default implementation reads the Go runtime memory statistics
// and the process CPU clock.
type ResourceSampler interface {
	// Sample returns the current memory snapshot and the cumulative
	// CPU time consumed by the process.
	Sample() ResourceSample
}

// MetricsCollector receives engine events for export to a monitoring system
// (OpenTelemetry, Prometheus, StatsD...). See the otel sub-package.
//
// Thread-safety: all methods are called concurrently and must not block.
type MetricsCollector interface {
	// RecordOperation records a completed tracked operation.
	RecordOperation(name string, status Status, latencyNs int64)

	// RecordCacheGet records a cache lookup and whether it was a hit.
	RecordCacheGet(hit bool)

	// RecordCacheSet records a cache write.
	RecordCacheSet()

	// RecordEviction records an LRU eviction.
	RecordEviction()

	// RecordExpiration records a TTL-based removal.
	RecordExpiration()

	// RecordAlert records an emitted alert with its number of violated thresholds.
	RecordAlert(violations int)
}

// NoOpMetricsCollector is a metrics collector that does nothing.
// Used as default to avoid nil checks.
type NoOpMetricsCollector struct{}

// RecordOperation does nothing.
func (NoOpMetricsCollector) RecordOperation(name string, status Status, latencyNs int64) {}

// RecordCacheGet does nothing.
func (NoOpMetricsCollector) RecordCacheGet(hit bool) {}

// RecordCacheSet does nothing.
func (NoOpMetricsCollector) RecordCacheSet() {}

// RecordEviction does nothing.
func (NoOpMetricsCollector) RecordEviction() {}

// RecordExpiration does nothing.
func (NoOpMetricsCollector) RecordExpiration() {}

// RecordAlert does nothing.
func (NoOpMetricsCollector) RecordAlert(violations int) {}

// AlertListener receives threshold alerts. OnAlert is called synchronously
// on the goroutine that completed the operation, so it must be fast and
// non-blocking. Panics are recovered and logged.
type AlertListener interface {
	OnAlert(alert Alert)
}

// AlertListenerFunc adapts a function to the AlertListener interface.
type AlertListenerFunc func(alert Alert)

// OnAlert calls f(alert).
func (f AlertListenerFunc) OnAlert(alert Alert) {
	f(alert)
}
