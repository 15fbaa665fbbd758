// batch.go: wave-based batch execution with bounded group concurrency
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// batchOptions collects BatchOption values.
type batchOptions struct {
	batchSize     int
	concurrency   int
	retryAttempts int
	name          string
	onProgress    func(completed, total int)
}

// BatchOption configures a single ProcessBatch call.
type BatchOption func(*batchOptions)

// WithBatchSize sets the number of items per group.
func WithBatchSize(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithConcurrency sets how many groups run at once in a wave.
func WithConcurrency(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRetryAttempts sets how many times a failed group is retried with
// exponential backoff. Timeouts are never retried.
func WithRetryAttempts(n int) BatchOption {
	return func(o *batchOptions) {
		if n >= 0 {
			o.retryAttempts = n
		}
	}
}

// WithBatchName labels the batch in operation names and errors.
func WithBatchName(name string) BatchOption {
	return func(o *batchOptions) {
		o.name = name
	}
}

// WithProgress registers a callback invoked after every wave with the
// number of items completed so far and the total.
func WithProgress(fn func(completed, total int)) BatchOption {
	return func(o *batchOptions) {
		o.onProgress = fn
	}
}

// span is the half-open item range [start, end) of one group.
type span struct {
	start, end int
}

// partition splits n items into contiguous groups of at most size.
func partition(n, size int) []span {
	groups := make([]span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		groups = append(groups, span{start: start, end: end})
	}
	return groups
}

// ProcessBatch applies fn to every item and returns the results in input order.
//
// Items are split into contiguous groups of the batch size. Groups are
// released in waves of at most the concurrency limit; a wave finishes when
// all of its groups have finished, and a failing group does not cancel its
// siblings. Items of a group run concurrently. Each group runs through
// WithTracking as "batch:<name>:group-<i>" without a deadline.
//
// If any group of a wave fails, later waves are not started and the error
// of the lowest failing group is returned wrapped in CELERIS_BATCH_FAILED.
//
// Example:
//
//	posts, err := celeris.ProcessBatch(ctx, opt, drafts, adaptForPlatform,
//	    celeris.WithBatchSize(3), celeris.WithConcurrency(2),
//	    celeris.WithProgress(func(done, total int) { log.Printf("%d/%d", done, total) }))
func ProcessBatch[T, R any](ctx context.Context, o *Optimizer, items []T, fn func(context.Context, T) (R, error), opts ...BatchOption) ([]R, error) {
	cfg := o.OptimizationConfig()
	options := batchOptions{
		batchSize:     cfg.BatchSize,
		concurrency:   cfg.ConcurrencyLimit,
		retryAttempts: cfg.RetryAttempts,
		name:          "default",
	}
	for _, opt := range opts {
		opt(&options)
	}

	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if fn == nil {
		return nil, NewErrInvalidWork("batch:" + options.name)
	}

	groups := partition(len(items), options.batchSize)
	completed := 0

	for waveStart := 0; waveStart < len(groups); waveStart += options.concurrency {
		waveEnd := waveStart + options.concurrency
		if waveEnd > len(groups) {
			waveEnd = len(groups)
		}
		wave := groups[waveStart:waveEnd]

		// A plain Group (no derived context) lets siblings finish when one fails.
		var g errgroup.Group
		errs := make([]error, len(wave))
		for i, grp := range wave {
			index := waveStart + i
			g.Go(func() error {
				errs[i] = runGroup(ctx, o, options, index, grp, items, results, fn)
				return errs[i]
			})
		}

		if err := g.Wait(); err != nil {
			for i, groupErr := range errs {
				if groupErr != nil {
					grp := wave[i]
					o.config.Logger.Warn("batch group failed",
						"batch", options.name, "group", waveStart+i, "error", groupErr)
					return nil, NewErrBatchFailed(options.name, waveStart+i, grp.start, grp.end, groupErr)
				}
			}
		}

		for _, grp := range wave {
			completed += grp.end - grp.start
		}
		if options.onProgress != nil {
			options.onProgress(completed, len(items))
		}
	}

	return results, nil
}

// runGroup executes one group through WithTracking, retrying on failure,
// and copies its outputs into results[grp.start:grp.end].
func runGroup[T, R any](ctx context.Context, o *Optimizer, options batchOptions, index int, grp span, items []T, results []R, fn func(context.Context, T) (R, error)) error {
	name := fmt.Sprintf("batch:%s:group-%d", options.name, index)
	metadata := map[string]interface{}{
		"batch":      options.name,
		"group":      index,
		"group_size": grp.end - grp.start,
	}

	work := func(ctx context.Context) (interface{}, error) {
		out := make([]R, grp.end-grp.start)
		var g errgroup.Group
		for i := range out {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = NewErrPanicRecovered(name, r)
					}
				}()
				r, err := fn(ctx, items[grp.start+i])
				if err != nil {
					return err
				}
				out[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}

	attempt := func() error {
		value, err := o.WithTracking(ctx, name, work, WithTimeout(-1), WithMetadata(metadata))
		if err != nil {
			return err
		}
		copy(results[grp.start:grp.end], value.([]R))
		return nil
	}

	if options.retryAttempts == 0 {
		return attempt()
	}

	retryable := func() error {
		err := attempt()
		if err != nil && (IsTimeout(err) || IsClosed(err) || IsCancelled(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.OptimizationConfig().RetryInitialInterval
	return backoff.RetryNotify(retryable,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(options.retryAttempts)), ctx), // #nosec G115 - non-negative
		func(err error, wait time.Duration) {
			o.config.Logger.Debug("retrying batch group", "operation", name, "wait", wait, "error", err)
		})
}
