// main.go: content pipeline demo with Prometheus metrics
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Command celeris-demo runs a simulated content pipeline (analyze, draft,
// adapt per platform) through celeris and exposes its metrics.
//
//	go run ./cmd/celeris-demo -rounds 20
//	curl http://localhost:2112/metrics | grep celeris
//
// With -config, runtime settings are reloaded from a YAML or JSON file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agilira/celeris"
	celerisotel "github.com/agilira/celeris/otel"
	"github.com/agilira/celeris/zaplog"
	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

var (
	topics    = []string{"go generics", "edge caching", "observability", "batch jobs", "go generics", "edge caching"}
	platforms = []string{"blog", "newsletter", "linkedin", "x", "mastodon"}

	errRateLimited = errors.New("platform rate limited")
)

type analysis struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
	Tone     string   `json:"tone"`
}

type draft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type post struct {
	Platform string `json:"platform"`
	Text     string `json:"text"`
}

func main() {
	var (
		metricsAddr = flag.String("metrics-addr", ":2112", "address of the Prometheus /metrics endpoint")
		configPath  = flag.String("config", "", "optional runtime configuration file to watch")
		rounds      = flag.Int("rounds", 10, "number of pipeline rounds")
		failRate    = flag.Float64("fail-rate", 0.05, "probability that a platform adaptation fails")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	zl, err := newZapLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()
	logger := zaplog.New(zl)

	exporter, err := prometheus.New()
	if err != nil {
		zl.Fatal("prometheus exporter", zap.Error(err))
	}
	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		// Buckets in nanoseconds: 1ms .. 10s
		metric.WithView(metric.NewView(
			metric.Instrument{Name: celerisotel.MetricOperationDuration},
			metric.Stream{
				Aggregation: metric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{1e6, 5e6, 1e7, 5e7, 1e8, 5e8, 1e9, 5e9, 1e10},
				},
			},
		)),
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			zl.Warn("meter provider shutdown", zap.Error(err))
		}
	}()

	collector, err := celerisotel.NewMetricsCollector(provider)
	if err != nil {
		zl.Fatal("metrics collector", zap.Error(err))
	}

	opt, err := celeris.New(celeris.Config{
		Cache: celeris.CacheConfig{MaxEntries: 256, DefaultTTL: 5 * time.Minute},
		Monitoring: celeris.MonitoringConfig{
			AlertThresholds: celeris.AlertThresholds{Duration: 150 * time.Millisecond},
			SampleInterval:  time.Second,
		},
		Optimization: celeris.OptimizationConfig{
			BatchSize:        2,
			ConcurrencyLimit: 2,
			Timeout:          400 * time.Millisecond,
			RetryAttempts:    1,
		},
		Logger:           logger,
		MetricsCollector: collector,
		OnSystemSample: func(s celeris.SystemSample) {
			zl.Debug("system sample",
				zap.Uint64("heap_used", s.Memory.HeapUsed),
				zap.Float64("cpu_percent", s.CPUPercent),
				zap.Int("goroutines", s.Goroutines))
		},
	})
	if err != nil {
		zl.Fatal("optimizer", zap.Error(err))
	}
	defer opt.Close()

	unsubscribe := opt.Subscribe(celeris.AlertListenerFunc(func(a celeris.Alert) {
		for _, v := range a.Violations {
			zl.Warn("alert",
				zap.String("operation", a.Metric.OperationName),
				zap.String("kind", string(v.Kind)),
				zap.Float64("threshold", v.Threshold),
				zap.Float64("actual", v.Actual))
		}
	}))
	defer unsubscribe()

	if *configPath != "" {
		hc, err := celeris.NewHotConfig(opt, celeris.HotConfigOptions{ConfigPath: *configPath, Logger: logger})
		if err != nil {
			zl.Fatal("hot config", zap.Error(err))
		}
		if err := hc.Start(); err != nil {
			zl.Fatal("hot config start", zap.Error(err))
		}
		defer func() { _ = hc.Stop() }()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("metrics server", zap.Error(err))
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &pipeline{opt: opt, failRate: *failRate}
	for round := 0; round < *rounds && ctx.Err() == nil; round++ {
		topic := topics[round%len(topics)]
		posts, err := p.run(ctx, topic)
		if err != nil {
			zl.Warn("pipeline round failed",
				zap.Int("round", round),
				zap.String("topic", topic),
				zap.String("code", string(celeris.GetErrorCode(err))),
				zap.Error(err))
			continue
		}
		zl.Info("pipeline round done", zap.Int("round", round), zap.String("topic", topic), zap.Int("posts", len(posts)))
	}

	report := struct {
		Stats           celeris.PerformanceStats `json:"stats"`
		Recommendations []celeris.Recommendation `json:"recommendations"`
	}{
		Stats:           opt.PerformanceStats(),
		Recommendations: opt.Recommendations(),
	}
	out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		zl.Error("report encoding", zap.Error(err))
		return
	}
	fmt.Println(string(out))
}

func newZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// pipeline turns a topic into platform-specific posts.
type pipeline struct {
	opt      *celeris.Optimizer
	failRate float64
}

func (p *pipeline) run(ctx context.Context, topic string) ([]post, error) {
	a, err := celeris.Track(ctx, p.opt, "analyze", func(ctx context.Context) (analysis, error) {
		return analyze(ctx, topic)
	}, celeris.WithCacheKey("analysis:"+topic), celeris.WithMetadata(map[string]interface{}{"topic": topic}))
	if err != nil {
		return nil, err
	}

	d, err := celeris.Track(ctx, p.opt, "draft", func(ctx context.Context) (draft, error) {
		return writeDraft(ctx, a)
	}, celeris.WithCacheKey("draft:"+topic), celeris.WithCacheTTL(time.Minute))
	if err != nil {
		return nil, err
	}

	return celeris.ProcessBatch(ctx, p.opt, platforms, func(ctx context.Context, platform string) (post, error) {
		return p.adapt(ctx, d, platform)
	}, celeris.WithBatchName("adapt"))
}

func analyze(ctx context.Context, topic string) (analysis, error) {
	if err := sleep(ctx, jitter(80*time.Millisecond)); err != nil {
		return analysis{}, err
	}
	return analysis{
		Topic:    topic,
		Keywords: strings.Fields(topic),
		Tone:     "informative",
	}, nil
}

func writeDraft(ctx context.Context, a analysis) (draft, error) {
	// Occasionally slower than the configured deadline.
	if err := sleep(ctx, jitter(250*time.Millisecond)); err != nil {
		return draft{}, err
	}
	return draft{
		Title: strings.ToUpper(a.Topic[:1]) + a.Topic[1:],
		Body:  fmt.Sprintf("A %s look at %s.", a.Tone, strings.Join(a.Keywords, ", ")),
	}, nil
}

func (p *pipeline) adapt(ctx context.Context, d draft, platform string) (post, error) {
	if err := sleep(ctx, jitter(20*time.Millisecond)); err != nil {
		return post{}, err
	}
	if rand.Float64() < p.failRate {
		return post{}, errRateLimited
	}
	text := d.Title + ": " + d.Body
	if platform == "x" && len(text) > 280 {
		text = text[:280]
	}
	return post{Platform: platform, Text: text}, nil
}

// jitter returns a duration in [base/2, base*3/2).
func jitter(base time.Duration) time.Duration {
	return base/2 + time.Duration(rand.Int64N(int64(base)))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
