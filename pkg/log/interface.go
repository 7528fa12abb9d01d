// Package log provides a structured logging interface for SciGo serving components.
//
// This package defines a minimal, slog-compatible logging interface so that the
// prediction service, the UI and the offline summarizer share one logging
// vocabulary. The production implementation is backed by zerolog; tests use
// TestLogger to capture JSON lines in memory.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ComponentKey, "serving",
//	    log.ModelNameKey, "LogisticRegression",
//	)
//	logger.Info("Prediction served",
//	    log.OperationKey, log.OperationPredict,
//	    log.FeaturesKey, 30,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// The interface supports method chaining through the With method, allowing
// for creation of contextual loggers with pre-populated fields.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error value, it is attached as the "error"
	// field and its stack trace (when created by cockroachdb/errors) is
	// emitted under "stacktrace".
	//
	// Example:
	//   logger.Error("Inference failed",
	//       err,
	//       log.OperationKey, log.OperationPredict,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
