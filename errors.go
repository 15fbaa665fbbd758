// errors.go: structured error handling for celeris operations
//
// This file provides structured error types using the go-errors library,
// enabling rich error context, categorization, and standardized error codes.
// Only failures of caller-supplied work (and its timeouts) ever leave the
// engine; bookkeeping failures are logged and contained.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package celeris

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/agilira/go-errors"
)

// Error codes for celeris operations
const (
	// Configuration errors
	ErrCodeInvalidConfig errors.ErrorCode = "CELERIS_INVALID_CONFIG"

	// Execution errors
	ErrCodeOperationTimeout   errors.ErrorCode = "CELERIS_OPERATION_TIMEOUT"
	ErrCodeOperationCancelled errors.ErrorCode = "CELERIS_OPERATION_CANCELLED"
	ErrCodeInvalidWork        errors.ErrorCode = "CELERIS_INVALID_WORK"
	ErrCodePanicRecovered     errors.ErrorCode = "CELERIS_PANIC_RECOVERED"
	ErrCodeTypeMismatch       errors.ErrorCode = "CELERIS_TYPE_MISMATCH"
	ErrCodeBatchFailed        errors.ErrorCode = "CELERIS_BATCH_FAILED"

	// Cache errors
	ErrCodeInvalidPattern     errors.ErrorCode = "CELERIS_INVALID_PATTERN"
	ErrCodeSizeEstimateFailed errors.ErrorCode = "CELERIS_SIZE_ESTIMATE_FAILED"

	// Lifecycle errors
	ErrCodeOptimizerClosed errors.ErrorCode = "CELERIS_OPTIMIZER_CLOSED"
)

// Common error messages
const (
	msgInvalidConfig      = "invalid configuration"
	msgOperationTimeout   = "operation exceeded its deadline"
	msgOperationCancelled = "operation cancelled before start"
	msgInvalidWork        = "work function cannot be nil"
	msgPanicRecovered     = "panic recovered in tracked operation"
	msgTypeMismatch       = "cached value has an unexpected type"
	msgBatchFailed        = "batch group failed"
	msgInvalidPattern     = "invalid invalidation pattern"
	msgSizeEstimateFailed = "failed to estimate cache entry size"
	msgOptimizerClosed    = "optimizer is closed"
)

// NewErrInvalidConfig creates an error for an invalid configuration value
func NewErrInvalidConfig(field string, value interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidConfig, msgInvalidConfig, map[string]interface{}{
		"field": field,
		"value": value,
	})
}

// NewErrOperationTimeout creates an error when tracked work outlives its deadline
func NewErrOperationTimeout(operation string, timeout time.Duration) error {
	return errors.NewWithContext(ErrCodeOperationTimeout, msgOperationTimeout, map[string]interface{}{
		"operation": operation,
		"timeout":   timeout.String(),
	}).AsRetryable()
}

// NewErrOperationCancelled creates an error when the caller context is done before work starts
func NewErrOperationCancelled(operation string, cause error) error {
	return errors.Wrap(cause, ErrCodeOperationCancelled, msgOperationCancelled).
		WithContext("operation", operation)
}

// NewErrInvalidWork creates an error when the work function is nil
func NewErrInvalidWork(operation string) error {
	return errors.NewWithContext(ErrCodeInvalidWork, msgInvalidWork, map[string]interface{}{
		"operation": operation,
	})
}

// NewErrPanicRecovered creates an error when tracked work panics
func NewErrPanicRecovered(operation string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodePanicRecovered, msgPanicRecovered, map[string]interface{}{
		"operation":   operation,
		"panic_value": fmt.Sprintf("%v", panicValue),
	}).WithSeverity("critical")
}

// NewErrTypeMismatch creates an error when a cached value cannot be returned as the requested type
func NewErrTypeMismatch(key string, expected string, actual interface{}) error {
	return errors.NewWithContext(ErrCodeTypeMismatch, msgTypeMismatch, map[string]interface{}{
		"key":      key,
		"expected": expected,
		"actual":   fmt.Sprintf("%T", actual),
	})
}

// NewErrBatchFailed wraps the error of the first failing batch group
func NewErrBatchFailed(batch string, group, start, end int, cause error) error {
	return errors.Wrap(cause, ErrCodeBatchFailed, msgBatchFailed).
		WithContext("batch", batch).
		WithContext("group", group).
		WithContext("first_item", start).
		WithContext("last_item", end-1)
}

// NewErrInvalidPattern creates an error when an invalidation pattern does not compile
func NewErrInvalidPattern(pattern string, cause error) error {
	return errors.Wrap(cause, ErrCodeInvalidPattern, msgInvalidPattern).
		WithContext("pattern", pattern)
}

// NewErrSizeEstimateFailed creates an error when a value cannot be encoded for sizing
func NewErrSizeEstimateFailed(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeSizeEstimateFailed, msgSizeEstimateFailed).
		WithContext("key", key).
		WithSeverity("warning")
}

// NewErrOptimizerClosed creates an error when the optimizer is used after Close
func NewErrOptimizerClosed(operation string) error {
	return errors.NewWithContext(ErrCodeOptimizerClosed, msgOptimizerClosed, map[string]interface{}{
		"operation": operation,
	})
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsTimeout reports whether err is (or wraps) a tracked operation timeout.
// Callers use it to tell "too slow" apart from "failed".
func IsTimeout(err error) bool {
	return errors.HasCode(err, ErrCodeOperationTimeout)
}

// IsCancelled checks if error is a cancellation error
func IsCancelled(err error) bool {
	return errors.HasCode(err, ErrCodeOperationCancelled)
}

// IsPanic checks if error is a recovered panic
func IsPanic(err error) bool {
	return errors.HasCode(err, ErrCodePanicRecovered)
}

// IsBatchError checks if error is a batch group failure
func IsBatchError(err error) bool {
	return errors.HasCode(err, ErrCodeBatchFailed)
}

// IsClosed checks if error reports use of a closed optimizer
func IsClosed(err error) bool {
	return errors.HasCode(err, ErrCodeOptimizerClosed)
}

// IsRetryable checks if the error can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from an error
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var celerisErr *errors.Error
	if goerrors.As(err, &celerisErr) {
		return celerisErr.Context
	}
	return nil
}
