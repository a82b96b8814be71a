// Package log provides the process-wide zap logger.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	sugar  *zap.SugaredLogger
	base   *zap.Logger
	silent = zap.NewNop()
)

// Init initializes the package-level logger
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("log: can't initialize zap logger: %w", err)
	}

	mu.Lock()
	base = zapLogger
	sugar = zapLogger.Sugar()
	mu.Unlock()
	return nil
}

// Logger returns the base zap logger. Before Init it discards everything.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return silent
	}
	return base
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if sugar == nil {
		return silent.Sugar()
	}
	return sugar
}

// Sync flushes any buffered log entries
func Sync() {
	_ = get().Sync()
}

func Debugw(msg string, keysAndValues ...interface{}) {
	get().Debugw(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	get().Infow(msg, keysAndValues...)
}

func Infof(template string, args ...interface{}) {
	get().Infof(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	get().Warnw(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	get().Errorw(msg, keysAndValues...)
}

func Fatalw(msg string, keysAndValues ...interface{}) {
	get().Fatalw(msg, keysAndValues...)
}
