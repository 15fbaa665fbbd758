// hot-reload_test.go: tests for dynamic configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewHotConfig_EmptyPath(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	_, err := NewHotConfig(o, HotConfigOptions{ConfigPath: ""})
	if GetErrorCode(err) != ErrCodeInvalidConfig {
		t.Errorf("err = %v, want invalid config", err)
	}
}

func TestHotConfig_HandleConfigChange(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})

	var reloads int
	hc := &HotConfig{
		optimizer: o,
		logger:    NoOpLogger{},
		config:    o.runtimeConfig(),
		OnReload: func(oldConfig, newConfig RuntimeConfig) {
			reloads++
			if oldConfig.Optimization.BatchSize != DefaultBatchSize {
				t.Errorf("old BatchSize = %d, want default", oldConfig.Optimization.BatchSize)
			}
		},
	}

	hc.handleConfigChange(map[string]interface{}{
		"monitoring": map[string]interface{}{
			"sample_rate": 0.5,
			"alert_thresholds": map[string]interface{}{
				"memory_bytes": float64(1 << 20),
				"cpu_percent":  90,
				"duration":     "5s",
			},
		},
		"optimization": map[string]interface{}{
			"batch_size":        20,
			"concurrency_limit": 4,
			"retry_attempts":    2,
			"timeout":           "10s",
		},
		"cache": map[string]interface{}{
			"default_ttl": "10m",
		},
	})

	if reloads != 1 {
		t.Fatalf("OnReload called %d times, want 1", reloads)
	}

	if rate := o.Tracker().getSampleRate(); rate != 0.5 {
		t.Errorf("sample rate = %v, want 0.5", rate)
	}
	thresholds := o.AlertThresholds()
	if thresholds.MemoryBytes != 1<<20 || thresholds.CPUPercent != 90 || thresholds.Duration != 5*time.Second {
		t.Errorf("thresholds = %+v", thresholds)
	}
	opt := o.OptimizationConfig()
	if opt.BatchSize != 20 || opt.ConcurrencyLimit != 4 || opt.RetryAttempts != 2 || opt.Timeout != 10*time.Second {
		t.Errorf("optimization = %+v", opt)
	}
	if opt.RetryInitialInterval != DefaultRetryInitialInterval {
		t.Error("Settings absent from the file should be kept")
	}
	if o.Cache().DefaultTTL() != 10*time.Minute {
		t.Errorf("cache default TTL = %v, want 10m", o.Cache().DefaultTTL())
	}
	if hc.GetConfig().Optimization.BatchSize != 20 {
		t.Error("GetConfig should return the applied configuration")
	}
}

func TestParseRuntimeConfig_InvalidValuesKeepBase(t *testing.T) {
	base := RuntimeConfig{
		SampleRate:      1,
		AlertThresholds: AlertThresholds{MemoryBytes: 100, CPUPercent: 80, Duration: time.Second},
		Optimization:    OptimizationConfig{BatchSize: 10, ConcurrencyLimit: 5, Timeout: time.Second},
		CacheDefaultTTL: time.Hour,
	}

	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{"Empty", map[string]interface{}{}},
		{"WrongSectionType", map[string]interface{}{"optimization": "fast"}},
		{"SampleRateTooHigh", map[string]interface{}{"monitoring": map[string]interface{}{"sample_rate": 1.5}}},
		{"SampleRateZero", map[string]interface{}{"monitoring": map[string]interface{}{"sample_rate": 0}}},
		{"NegativeBatch", map[string]interface{}{"optimization": map[string]interface{}{"batch_size": -3}}},
		{"BadDuration", map[string]interface{}{"optimization": map[string]interface{}{"timeout": "soon"}}},
		{"NegativeTTL", map[string]interface{}{"cache": map[string]interface{}{"default_ttl": "-1m"}}},
		{"RetriesOutOfRange", map[string]interface{}{"optimization": map[string]interface{}{"retry_attempts": 1000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRuntimeConfig(tt.data, base)
			if got != base {
				t.Errorf("parseRuntimeConfig() = %+v, want base %+v", got, base)
			}
		})
	}
}

func TestHotConfig_FileReload(t *testing.T) {
	o, _, _ := newTestOptimizer(t, Config{})
	configPath := filepath.Join(t.TempDir(), "celeris.yaml")

	initialConfig := `monitoring:
  sample_rate: 0.5
  alert_duration: 2s
optimization:
  batch_size: 25
  concurrency_limit: 3
  timeout: 4s
cache:
  default_ttl: 15m
`
	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	reloadCh := make(chan RuntimeConfig, 1)
	hc, err := NewHotConfig(o, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 50 * time.Millisecond,
		OnReload: func(oldConfig, newConfig RuntimeConfig) {
			select {
			case reloadCh <- newConfig:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case cfg := <-reloadCh:
		if cfg.Optimization.BatchSize != 25 {
			t.Errorf("BatchSize = %d, want 25", cfg.Optimization.BatchSize)
		}
		if cfg.CacheDefaultTTL != 15*time.Minute {
			t.Errorf("CacheDefaultTTL = %v, want 15m", cfg.CacheDefaultTTL)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for initial config load")
	}

	opt := o.OptimizationConfig()
	if opt.ConcurrencyLimit != 3 || opt.Timeout != 4*time.Second {
		t.Errorf("optimization = %+v, want concurrency 3 and timeout 4s", opt)
	}
	if o.AlertThresholds().Duration != 2*time.Second {
		t.Errorf("duration threshold = %v, want 2s", o.AlertThresholds().Duration)
	}
	if rate := o.Tracker().getSampleRate(); rate != 0.5 {
		t.Errorf("sample rate = %v, want 0.5", rate)
	}
}

func TestParseRuntimeConfig_FlattenedSections(t *testing.T) {
	base := RuntimeConfig{
		SampleRate:      1,
		AlertThresholds: AlertThresholds{MemoryBytes: 100, CPUPercent: 80, Duration: time.Second},
		Optimization:    OptimizationConfig{BatchSize: 10, ConcurrencyLimit: 5, Timeout: time.Second},
		CacheDefaultTTL: time.Hour,
	}

	// Shape produced by a line-oriented YAML parser: section headers carry
	// empty strings and their children sit at the top level.
	data := map[string]interface{}{
		"monitoring":         "",
		"sample_rate":        0.25,
		"alert_memory_bytes": 4096,
		"alert_cpu_percent":  70,
		"alert_duration":     `"3s"`,
		"optimization":       "",
		"batch_size":         25,
		"concurrency_limit":  3,
		"retry_attempts":     2,
		"timeout":            "8s",
		"cache":              "",
		"default_ttl":        "15m",
	}

	got := parseRuntimeConfig(data, base)
	want := RuntimeConfig{
		SampleRate:      0.25,
		AlertThresholds: AlertThresholds{MemoryBytes: 4096, CPUPercent: 70, Duration: 3 * time.Second},
		Optimization:    OptimizationConfig{BatchSize: 25, ConcurrencyLimit: 3, RetryAttempts: 2, Timeout: 8 * time.Second},
		CacheDefaultTTL: 15 * time.Minute,
	}
	if got != want {
		t.Errorf("parseRuntimeConfig() = %+v, want %+v", got, want)
	}
}

func TestParseRuntimeConfig_KeyForms(t *testing.T) {
	base := RuntimeConfig{Optimization: OptimizationConfig{BatchSize: 10}}

	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{"Nested", map[string]interface{}{"optimization": map[string]interface{}{"batch_size": 7}}},
		{"Dotted", map[string]interface{}{"optimization.batch_size": 7}},
		{"Flat", map[string]interface{}{"batch_size": 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseRuntimeConfig(tt.data, base)
			if got.Optimization.BatchSize != 7 {
				t.Errorf("BatchSize = %d, want 7", got.Optimization.BatchSize)
			}
		})
	}

	nested := map[string]interface{}{
		"monitoring": map[string]interface{}{
			"alert_thresholds": map[string]interface{}{"duration": "9s"},
		},
	}
	if d := parseRuntimeConfig(nested, base).AlertThresholds.Duration; d != 9*time.Second {
		t.Errorf("nested alert duration = %v, want 9s", d)
	}
}
