// Package obslog provides structured, leveled logging for the scheduler
// core (SPEC_FULL.md §A.1), wrapping a *zap.SugaredLogger behind the same
// small surface the teacher's internal/logging package exposed
// (Debug/Info/Warn/Error, level parsing, a Discard() test logger).
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the teacher's logging.Level, mapped onto zapcore.Level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel parses a log level string, defaulting to Info on no match.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a structured, leveled logger. The zero value is not usable;
// construct with New or Discard.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger writing structured (JSON) output to stderr at the
// given minimum level.
func New(level Level) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	zl, err := cfg.Build()
	if err != nil {
		// zap.NewProductionConfig().Build() only fails on a malformed
		// encoder/sink configuration, which this fixed config never is.
		panic(err)
	}
	return &Logger{sugar: zl.Sugar()}
}

// Discard returns a Logger that drops every message, for use in tests.
func Discard() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Debug logs a debug-level message with structured key/value fields.
func (l *Logger) Debug(msg string, fields ...interface{}) { l.sugar.Debugw(msg, fields...) }

// Info logs an info-level message with structured key/value fields.
func (l *Logger) Info(msg string, fields ...interface{}) { l.sugar.Infow(msg, fields...) }

// Warn logs a warn-level message with structured key/value fields.
func (l *Logger) Warn(msg string, fields ...interface{}) { l.sugar.Warnw(msg, fields...) }

// Error logs an error-level message with structured key/value fields.
func (l *Logger) Error(msg string, fields ...interface{}) { l.sugar.Errorw(msg, fields...) }

// With returns a Logger carrying the given structured fields on every
// subsequent call, for tagging a subsystem (e.g. "component", "collector").
func (l *Logger) With(fields ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(fields...)}
}

// Sync flushes any buffered log entries, matching zap's own idiom for
// defer-on-shutdown (cmd/scheduler calls this once at exit).
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
