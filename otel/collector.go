// collector.go: OpenTelemetry implementation of celeris.MetricsCollector
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package otel

import (
	"context"

	"github.com/agilira/celeris"
	"github.com/agilira/go-errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrCodeNilMeterProvider is returned when NewMetricsCollector receives a nil provider.
const ErrCodeNilMeterProvider errors.ErrorCode = "CELERIS_OTEL_NIL_PROVIDER"

// Metric names exposed by MetricsCollector.
const (
	MetricOperationDuration = "celeris_operation_duration_ns"
	MetricOperations        = "celeris_operations_total"
	MetricCacheHits         = "celeris_cache_hits_total"
	MetricCacheMisses       = "celeris_cache_misses_total"
	MetricCacheSets         = "celeris_cache_sets_total"
	MetricEvictions         = "celeris_cache_evictions_total"
	MetricExpirations       = "celeris_cache_expirations_total"
	MetricAlerts            = "celeris_alerts_total"
	MetricViolations        = "celeris_alert_violations_total"
)

// MetricsCollector implements celeris.MetricsCollector using OpenTelemetry.
//
// Operation durations go to a histogram with "operation" and "status"
// attributes, so percentiles per operation name come from the backend.
// Cache and alert events are plain counters.
//
// Thread-safety: Safe for concurrent use by multiple goroutines.
type MetricsCollector struct {
	duration    metric.Int64Histogram
	operations  metric.Int64Counter
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	sets        metric.Int64Counter
	evictions   metric.Int64Counter
	expirations metric.Int64Counter
	alerts      metric.Int64Counter
	violations  metric.Int64Counter
}

// Options for configuring MetricsCollector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/agilira/celeris"
	MeterName string
}

// Option is a functional option for configuring MetricsCollector.
type Option func(*Options)

// WithMeterName sets a custom meter name, for example to tell several
// optimizers apart.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewMetricsCollector creates the instruments on a meter obtained from provider.
//
// Example:
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	collector, err := otel.NewMetricsCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opt, _ := celeris.New(celeris.Config{MetricsCollector: collector})
func NewMetricsCollector(provider metric.MeterProvider, opts ...Option) (*MetricsCollector, error) {
	if provider == nil {
		return nil, errors.NewWithField(ErrCodeNilMeterProvider, "meter provider cannot be nil", "component", "otel")
	}

	options := Options{
		MeterName: "github.com/agilira/celeris",
	}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)
	c := &MetricsCollector{}

	var err error
	c.duration, err = meter.Int64Histogram(
		MetricOperationDuration,
		metric.WithDescription("Duration of tracked operations in nanoseconds"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return nil, err
	}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&c.operations, MetricOperations, "Total number of completed tracked operations"},
		{&c.hits, MetricCacheHits, "Total number of cache hits"},
		{&c.misses, MetricCacheMisses, "Total number of cache misses"},
		{&c.sets, MetricCacheSets, "Total number of cache writes"},
		{&c.evictions, MetricEvictions, "Total number of LRU evictions"},
		{&c.expirations, MetricExpirations, "Total number of TTL-based expirations"},
		{&c.alerts, MetricAlerts, "Total number of threshold alerts"},
		{&c.violations, MetricViolations, "Total number of violated thresholds across alerts"},
	}
	for _, ctr := range counters {
		*ctr.target, err = meter.Int64Counter(ctr.name, metric.WithDescription(ctr.desc))
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordOperation records the duration and outcome of a tracked operation.
func (c *MetricsCollector) RecordOperation(name string, status celeris.Status, latencyNs int64) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("status", string(status)),
	)
	c.duration.Record(ctx, latencyNs, attrs)
	c.operations.Add(ctx, 1, attrs)
}

// RecordCacheGet increments either the hits or the misses counter.
func (c *MetricsCollector) RecordCacheGet(hit bool) {
	if hit {
		c.hits.Add(context.Background(), 1)
	} else {
		c.misses.Add(context.Background(), 1)
	}
}

// RecordCacheSet increments the cache writes counter.
func (c *MetricsCollector) RecordCacheSet() {
	c.sets.Add(context.Background(), 1)
}

// RecordEviction increments the evictions counter.
func (c *MetricsCollector) RecordEviction() {
	c.evictions.Add(context.Background(), 1)
}

// RecordExpiration increments the expirations counter.
func (c *MetricsCollector) RecordExpiration() {
	c.expirations.Add(context.Background(), 1)
}

// RecordAlert counts one alert and its violated thresholds.
func (c *MetricsCollector) RecordAlert(violations int) {
	ctx := context.Background()
	c.alerts.Add(ctx, 1)
	c.violations.Add(ctx, int64(violations))
}

var _ celeris.MetricsCollector = (*MetricsCollector)(nil)
