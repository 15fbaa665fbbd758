// hot-reload.go: dynamic configuration with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// RuntimeConfig is the subset of the configuration that can change while
// the optimizer is running.
type RuntimeConfig struct {
	SampleRate      float64
	AlertThresholds AlertThresholds
	Optimization    OptimizationConfig
	CacheDefaultTTL time.Duration
}

// HotConfig watches a configuration file and applies runtime settings
// (alert thresholds, sample rate, batching, retries, default TTL) to a
// running optimizer when the file changes.
type HotConfig struct {
	optimizer *Optimizer
	watcher   *argus.Watcher
	logger    Logger

	mu     sync.RWMutex
	config RuntimeConfig

	// OnReload is called after configuration is successfully reloaded.
	// This callback is optional and must be fast and non-blocking.
	OnReload func(oldConfig, newConfig RuntimeConfig)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(oldConfig, newConfig RuntimeConfig)

	// Logger for hot reload operations.
	// If nil, uses the optimizer's logger.
	Logger Logger
}

// NewHotConfig creates a hot-reloadable configuration for an optimizer.
//
// Example configuration file (YAML):
//
//	monitoring:
//	  sample_rate: 0.5
//	  alert_memory_bytes: 268435456
//	  alert_cpu_percent: 90
//	  alert_duration: 5s
//	optimization:
//	  batch_size: 20
//	  concurrency_limit: 4
//	  timeout: 10s
//	  retry_attempts: 2
//	cache:
//	  default_ttl: 10m
//
// Every key name is unique, so the same file works whether the parser
// keeps the sections or flattens them. JSON files may also nest the
// thresholds as monitoring.alert_thresholds.{memory_bytes,cpu_percent,duration}.
//
// Keys that are missing or invalid keep the value currently in effect.
// Cache capacity and sweep intervals are fixed at construction and are
// not reloaded.
func NewHotConfig(o *Optimizer, opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, NewErrInvalidConfig("config_path", opts.ConfigPath)
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	if opts.Logger == nil {
		opts.Logger = o.config.Logger
	}

	hc := &HotConfig{
		optimizer: o,
		logger:    opts.Logger,
		OnReload:  opts.OnReload,
		config:    o.runtimeConfig(),
	}

	argusConfig := argus.Config{
		PollInterval: opts.PollInterval,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// GetConfig returns the runtime configuration last applied (thread-safe).
func (hc *HotConfig) GetConfig() RuntimeConfig {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.config
}

// handleConfigChange is called by Argus when configuration changes.
func (hc *HotConfig) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	oldConfig := hc.config
	newConfig := parseRuntimeConfig(configData, oldConfig)
	hc.config = newConfig
	hc.mu.Unlock()

	hc.optimizer.applyRuntimeConfig(newConfig)
	hc.logger.Info("configuration reloaded",
		"sample_rate", newConfig.SampleRate,
		"batch_size", newConfig.Optimization.BatchSize,
		"concurrency", newConfig.Optimization.ConcurrencyLimit)

	if hc.OnReload != nil {
		hc.OnReload(oldConfig, newConfig)
	}
}

// runtimeConfig returns the runtime settings currently in effect.
func (o *Optimizer) runtimeConfig() RuntimeConfig {
	return RuntimeConfig{
		SampleRate:      o.tracker.getSampleRate(),
		AlertThresholds: o.alerts.getThresholds(),
		Optimization:    o.OptimizationConfig(),
		CacheDefaultTTL: o.cache.DefaultTTL(),
	}
}

// applyRuntimeConfig installs runtime settings on every component.
func (o *Optimizer) applyRuntimeConfig(c RuntimeConfig) {
	o.tracker.setSampleRate(c.SampleRate)
	o.alerts.setThresholds(c.AlertThresholds)
	o.setOptimizationConfig(c.Optimization)
	o.cache.SetDefaultTTL(c.CacheDefaultTTL)
}

// section returns data[name] as a map, or nil.
func section(data map[string]interface{}, name string) map[string]interface{} {
	s, _ := data[name].(map[string]interface{})
	return s
}

// runtimeKey locates one setting in parsed configuration data.
// Argus' YAML parser flattens nested sections ("optimization" becomes ""
// and its children move to the top level), so every setting also has a
// flat name that is unique across all sections.
type runtimeKey struct {
	path []string
	flat string
}

var (
	keySampleRate       = runtimeKey{[]string{"monitoring", "sample_rate"}, "sample_rate"}
	keyAlertMemory      = runtimeKey{[]string{"monitoring", "alert_thresholds", "memory_bytes"}, "alert_memory_bytes"}
	keyAlertCPU         = runtimeKey{[]string{"monitoring", "alert_thresholds", "cpu_percent"}, "alert_cpu_percent"}
	keyAlertDuration    = runtimeKey{[]string{"monitoring", "alert_thresholds", "duration"}, "alert_duration"}
	keyBatchSize        = runtimeKey{[]string{"optimization", "batch_size"}, "batch_size"}
	keyConcurrencyLimit = runtimeKey{[]string{"optimization", "concurrency_limit"}, "concurrency_limit"}
	keyRetryAttempts    = runtimeKey{[]string{"optimization", "retry_attempts"}, "retry_attempts"}
	keyTimeout          = runtimeKey{[]string{"optimization", "timeout"}, "timeout"}
	keyDefaultTTL       = runtimeKey{[]string{"cache", "default_ttl"}, "default_ttl"}
)

// lookup tries, in order: the nested path, the flat name inside the
// top-level section, the dotted path and the flat name at the top level.
func (k runtimeKey) lookup(data map[string]interface{}) interface{} {
	m := data
	for _, name := range k.path[:len(k.path)-1] {
		if m = section(m, name); m == nil {
			break
		}
	}
	if m != nil {
		if v, ok := m[k.path[len(k.path)-1]]; ok {
			return v
		}
	}
	if s := section(data, k.path[0]); s != nil {
		if v, ok := s[k.flat]; ok {
			return v
		}
	}
	if v, ok := data[strings.Join(k.path, ".")]; ok {
		return v
	}
	return data[k.flat]
}

// parseRuntimeConfig overlays the values found in data on base.
func parseRuntimeConfig(data map[string]interface{}, base RuntimeConfig) RuntimeConfig {
	config := base

	if rate, ok := parseFloatInRange(keySampleRate.lookup(data), 0, math.Inf(1)); ok && rate <= 1 {
		config.SampleRate = rate
	}
	if mem, ok := parsePositiveInt(keyAlertMemory.lookup(data)); ok {
		config.AlertThresholds.MemoryBytes = uint64(mem) // #nosec G115 - positive
	}
	if cpu, ok := parseFloatInRange(keyAlertCPU.lookup(data), 0, 10000); ok {
		config.AlertThresholds.CPUPercent = cpu
	}
	if d, ok := parseDuration(keyAlertDuration.lookup(data)); ok && d > 0 {
		config.AlertThresholds.Duration = d
	}

	if n, ok := parsePositiveInt(keyBatchSize.lookup(data)); ok {
		config.Optimization.BatchSize = n
	}
	if n, ok := parsePositiveInt(keyConcurrencyLimit.lookup(data)); ok {
		config.Optimization.ConcurrencyLimit = n
	}
	if n, ok := parseIntInRange(keyRetryAttempts.lookup(data), 0, 100); ok {
		config.Optimization.RetryAttempts = n
	}
	if d, ok := parseDuration(keyTimeout.lookup(data)); ok && d > 0 {
		config.Optimization.Timeout = d
	}

	if d, ok := parseDuration(keyDefaultTTL.lookup(data)); ok && d > 0 {
		config.CacheDefaultTTL = d
	}

	return config
}

// parsePositiveInt extracts a positive integer from interface{} value.
// Supports both int and float64 types (YAML/JSON may vary).
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case int64:
		if v > 0 {
			return int(v), true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseIntInRange extracts an integer within the specified range [min, max].
// Supports both int and float64 types.
func parseIntInRange(value interface{}, min, max int) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= min && v <= max {
			return v, true
		}
	case int64:
		if v >= int64(min) && v <= int64(max) {
			return int(v), true
		}
	case float64:
		if v >= float64(min) && v <= float64(max) {
			return int(v), true
		}
	}
	return 0, false
}

// parseDuration extracts a time.Duration from a string value.
// Surrounding quotes left by line-oriented parsers are ignored.
func parseDuration(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(strings.Trim(str, `"'`)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// parseFloatInRange extracts a float64 within the specified range (min, max).
// Integers and numeric strings are accepted too.
func parseFloatInRange(value interface{}, min, max float64) (float64, bool) {
	var v float64
	switch n := value.(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.Trim(n, `"'`), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if v > min && v < max {
		return v, true
	}
	return 0, false
}
