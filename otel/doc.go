// Package otel provides OpenTelemetry integration for celeris metrics.
//
// # Overview
//
// MetricsCollector implements celeris.MetricsCollector with OpenTelemetry
// instruments. Any OTEL reader or exporter can be attached to the provider:
// Prometheus, OTLP, or a ManualReader in tests.
//
// # Quick Start
//
//	import (
//	    "github.com/agilira/celeris"
//	    celerisotel "github.com/agilira/celeris/otel"
//	    "go.opentelemetry.io/otel/exporters/prometheus"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//
//	collector, _ := celerisotel.NewMetricsCollector(provider)
//	opt, _ := celeris.New(celeris.Config{MetricsCollector: collector})
//
// # Metrics Exposed
//
//   - celeris_operation_duration_ns: histogram, attributes operation and status
//   - celeris_operations_total: counter, attributes operation and status
//   - celeris_cache_hits_total, celeris_cache_misses_total, celeris_cache_sets_total
//   - celeris_cache_evictions_total, celeris_cache_expirations_total
//   - celeris_alerts_total, celeris_alert_violations_total
//
// # PromQL
//
//	histogram_quantile(0.95, sum by (le, operation) (rate(celeris_operation_duration_ns_bucket[5m])))
//	sum(rate(celeris_operations_total{status="error"}[5m])) / sum(rate(celeris_operations_total[5m]))
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package otel
