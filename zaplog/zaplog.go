// zaplog.go: zap adapter for the celeris Logger interface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package zaplog adapts a zap logger to celeris.Logger.
//
//	zl, _ := zap.NewProduction()
//	opt, _ := celeris.New(celeris.Config{Logger: zaplog.New(zl)})
package zaplog

import (
	"github.com/agilira/celeris"
	"go.uber.org/zap"
)

// Logger forwards celeris key/value logs to a zap SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps l. A nil logger yields a no-op logger.
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{sugar: l.Named("celeris").Sugar()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.sugar.Debugw(msg, keyvals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.sugar.Infow(msg, keyvals...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.sugar.Warnw(msg, keyvals...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.sugar.Errorw(msg, keyvals...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

var _ celeris.Logger = (*Logger)(nil)
