// Package logger holds the process-wide zap logger. Components tag their
// entries with a module name via WithModule instead of threading logger
// instances through constructors.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init replaces the global logger with a production logger at the given
// level. Unrecognised level strings fall back to info.
func Init(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("logger: build: %w", err)
	}

	mu.Lock()
	global = built
	mu.Unlock()
	return nil
}

// Logger returns the current global logger. Before Init it is a no-op
// logger, so early failures never panic on a nil sink.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// WithModule returns a logger whose entries carry the module name.
func WithModule(name string) *zap.Logger {
	return Logger().With(zap.String("module", name))
}

// Sync flushes buffered entries.
func Sync() error {
	return Logger().Sync()
}

// Info logs at info level on the global logger.
func Info(msg string, fields ...zap.Field) { Logger().Info(msg, fields...) }

// Warn logs at warn level on the global logger.
func Warn(msg string, fields ...zap.Field) { Logger().Warn(msg, fields...) }

// Error logs at error level on the global logger.
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Debug logs at debug level on the global logger.
func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }
