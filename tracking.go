// tracking.go: tracked execution with deadline and cache-aside
//
// This file implements WithTracking and its generic counterpart Track.
// A tracked call consults the cache, times the work through the operation
// tracker, and stores successful results. Tracking is a side channel: the
// work's own error is always returned unchanged.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package celeris

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Work is a unit of computation run by WithTracking. The context is
// cancelled when the deadline passes; honouring it is up to the work.
type Work func(ctx context.Context) (interface{}, error)

// trackOptions collects TrackOption values.
type trackOptions struct {
	timeout     time.Duration
	timeoutSet  bool
	cacheKey    string
	cacheTTL    time.Duration
	metadata    map[string]interface{}
	operationID string
}

// TrackOption configures a single WithTracking call.
type TrackOption func(*trackOptions)

// WithTimeout bounds the wait for the work. A negative duration disables
// the deadline; without this option the configured Optimization.Timeout applies.
func WithTimeout(d time.Duration) TrackOption {
	return func(o *trackOptions) {
		o.timeout = d
		o.timeoutSet = true
	}
}

// WithCacheKey enables cache-aside: a hit skips the work entirely and a
// successful result is stored under key.
func WithCacheKey(key string) TrackOption {
	return func(o *trackOptions) {
		o.cacheKey = key
	}
}

// WithCacheTTL sets the TTL of the stored result (default: the cache default TTL).
func WithCacheTTL(ttl time.Duration) TrackOption {
	return func(o *trackOptions) {
		o.cacheTTL = ttl
	}
}

// WithMetadata attaches key/value pairs to the recorded metric.
func WithMetadata(metadata map[string]interface{}) TrackOption {
	return func(o *trackOptions) {
		o.metadata = metadata
	}
}

// WithOperationID sets the operation id instead of generating one.
func WithOperationID(id string) TrackOption {
	return func(o *trackOptions) {
		o.operationID = id
	}
}

// workResult carries the outcome of the work goroutine.
type workResult struct {
	value interface{}
	err   error
}

// WithTracking runs work as the operation name.
//
// Behaviour:
//   - with a cache key, a cache hit returns immediately and no operation is tracked
//   - otherwise the operation is started, work runs, and the operation ends
//     with StatusSuccess, StatusError (metadata["error"] holds the message)
//     or StatusTimeout
//   - on success with a cache key, the result is cached before returning
//
// Deadline: WithTimeout(d) bounds the wait for the work. Without it the
// configured Optimization.Timeout (default 30s) applies, so every call is
// bounded; pass WithTimeout(-1) to run the work with no deadline at all.
//
// Returns:
//   - the work's value and error unchanged,
//   - CELERIS_OPERATION_TIMEOUT when the deadline passes first (see IsTimeout),
//   - CELERIS_PANIC_RECOVERED when the work panics,
//   - ctx.Err() when the caller context ends first.
//
// Example:
//
//	draft, err := opt.WithTracking(ctx, "draft-content", func(ctx context.Context) (interface{}, error) {
//	    return generator.Draft(ctx, analysis)
//	}, celeris.WithTimeout(5*time.Second), celeris.WithCacheKey("draft:"+analysis.ID))
func (o *Optimizer) WithTracking(ctx context.Context, name string, work Work, opts ...TrackOption) (interface{}, error) {
	if work == nil {
		return nil, NewErrInvalidWork(name)
	}
	if o.closed.Load() {
		return nil, NewErrOptimizerClosed(name)
	}

	options := trackOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	timeout := options.timeout
	if !options.timeoutSet {
		timeout = o.OptimizationConfig().Timeout
	}

	if options.cacheKey != "" {
		if value, found := o.cache.Get(options.cacheKey); found {
			return value, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, NewErrOperationCancelled(name, err)
	}

	id := options.operationID
	if id == "" {
		id = NewOperationID(name)
	}

	o.tracker.StartOperation(id, name)
	value, err := o.execute(ctx, name, work, timeout)

	metadata := make(map[string]interface{}, len(options.metadata)+1)
	for k, v := range options.metadata {
		metadata[k] = v
	}
	status := StatusSuccess
	switch {
	case err == nil:
	case IsTimeout(err):
		status = StatusTimeout
	default:
		status = StatusError
		metadata["error"] = err.Error()
	}
	o.tracker.EndOperation(id, status, metadata)

	if err != nil {
		return nil, err
	}

	if options.cacheKey != "" {
		o.cache.SetWithTTL(options.cacheKey, value, options.cacheTTL)
	}
	return value, nil
}

// execute runs work on its own goroutine and races it against the
// deadline. The losing work keeps running until it returns; only the
// wait is abandoned.
func (o *Optimizer) execute(ctx context.Context, name string, work Work, timeout time.Duration) (interface{}, error) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// Buffered so an abandoned goroutine can still deliver and exit.
	done := make(chan workResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- workResult{err: NewErrPanicRecovered(name, r)}
			}
		}()
		value, err := work(runCtx)
		done <- workResult{value: value, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && deadlineHit(ctx, runCtx, timeout) {
			return nil, NewErrOperationTimeout(name, timeout)
		}
		return r.value, r.err
	case <-runCtx.Done():
		if deadlineHit(ctx, runCtx, timeout) {
			return nil, NewErrOperationTimeout(name, timeout)
		}
		return nil, ctx.Err()
	}
}

// deadlineHit reports whether runCtx ended because of our own deadline
// rather than the caller's context.
func deadlineHit(parent, runCtx context.Context, timeout time.Duration) bool {
	return timeout > 0 && parent.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded)
}

// Track is the type-safe form of WithTracking.
//
// Example:
//
//	analysis, err := celeris.Track(ctx, opt, "analyze-text", func(ctx context.Context) (Analysis, error) {
//	    return analyzer.Analyze(ctx, text)
//	}, celeris.WithCacheKey("analysis:"+hash))
func Track[T any](ctx context.Context, o *Optimizer, name string, work func(context.Context) (T, error), opts ...TrackOption) (T, error) {
	var zero T
	if work == nil {
		return zero, NewErrInvalidWork(name)
	}

	value, err := o.WithTracking(ctx, name, func(ctx context.Context) (interface{}, error) {
		return work(ctx)
	}, opts...)
	if err != nil || value == nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		options := trackOptions{}
		for _, opt := range opts {
			opt(&options)
		}
		return zero, NewErrTypeMismatch(options.cacheKey, fmt.Sprintf("%T", zero), value)
	}
	return typed, nil
}
