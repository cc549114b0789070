// Package log provides the package-level zap logger shared across
// internal/compiler, internal/driver, and cmd/waskr, grounded on
// wippyai-wasm-runtime's linker/logger.go singleton pattern.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the shared logger instance, defaulting to a no-op logger
// so library use of this module stays silent unless a caller opts in.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the shared logger. Call before any compile operation.
func SetLogger(l *zap.Logger) {
	logger = l
}
