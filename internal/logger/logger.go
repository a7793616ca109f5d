// Package logger provides module-aware structured logging built on log/slog.
//
// Components receive a Logger and derive module-scoped children from it:
//
//	central, err := logger.NewCentralLogger(&logger.LoggingConfig{DefaultLevel: "info"})
//	if err != nil {
//	    return err
//	}
//	defer central.Close()
//
//	log := central.Module("realize")
//	log.Info("source table written",
//	    logger.Int("rows", rows),
//	    logger.Int("failures", failures))
//
// Console output is human-readable text; file output is JSON for machine
// parsing. Tests use NewSlogLogger with a buffer or io.Discard.
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned so repeated keys across log calls share one allocation.
type Field struct {
	Key   string
	Value any
}

func internKey(key string) string {
	return unique.Make(key).Value()
}

var (
	errorKey   = internKey("error")
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// Logger is the logging interface injected into components
type Logger interface {
	// Module returns a logger scoped to a sub-module
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field for counts, indices and sizes.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Uint64 creates an unsigned 64-bit integer field, used for seeds.
func Uint64(key string, value uint64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a float field. Values are rounded to three decimals in output.
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field. The key is always "error".
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field rendered as a human-readable string.
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Time creates a time field.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with an arbitrary value. Prefer the typed constructors.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
