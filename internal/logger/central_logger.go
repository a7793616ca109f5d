package logger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	// traceLevelValue is the slog level for TRACE, below Debug (-4)
	traceLevelValue = slog.Level(-8)

	// floatPrecisionRatio rounds floats to 3 decimal places in log output
	floatPrecisionRatio = 1000.0

	dirPermissions = 0o755
)

var (
	globalLogger   *CentralLogger
	globalLoggerMu sync.Mutex
)

// SetGlobal sets the global CentralLogger instance.
func SetGlobal(cl *CentralLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = cl
}

// Global returns the global CentralLogger, creating a console-only fallback
// when SetGlobal has not been called.
func Global() *CentralLogger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalLogger != nil {
		return globalLogger
	}

	globalLogger = &CentralLogger{
		config:       &LoggingConfig{DefaultLevel: DefaultLogLevel},
		timezone:     time.Local,
		moduleLevels: make(map[string]slog.Level),
		baseHandler:  newTextHandler(os.Stderr, slog.LevelInfo, time.Local),
	}
	return globalLogger
}

type loggerContextKey struct{ name string }

// TraceIDKey is the context key for trace ids. Use WithTraceID to set values.
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a new context carrying the trace id. Source table
// builds use the run id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger routes module loggers to console and file handlers
type CentralLogger struct {
	config       *LoggingConfig
	timezone     *time.Location
	baseHandler  slog.Handler
	file         *os.File
	fileBuf      *bufio.Writer
	moduleLevels map[string]slog.Level
	mu           sync.RWMutex
}

// NewCentralLogger creates a centralized logger
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	var tz *time.Location
	switch cfg.Timezone {
	case "", "Local":
		tz = time.Local
	default:
		var err error
		tz, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
		}
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, levelStr := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(levelStr)
	}

	if err := cl.createBaseHandler(); err != nil {
		return nil, fmt.Errorf("failed to create base handler: %w", err)
	}
	return cl, nil
}

func (cl *CentralLogger) createBaseHandler() error {
	var handlers []slog.Handler

	if cl.config.Console != nil && cl.config.Console.Enabled {
		handlers = append(handlers, newTextHandler(os.Stderr, parseLogLevel(cl.config.Console.Level), cl.timezone))
	}

	if cl.config.FileOutput != nil && cl.config.FileOutput.Enabled {
		if err := ensureFileDirectory(cl.config.FileOutput.Path); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cl.config.FileOutput.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cl.file = f
		cl.fileBuf = bufio.NewWriter(f)
		handlers = append(handlers, slog.NewJSONHandler(&lockedWriter{w: cl.fileBuf, mu: &cl.mu}, &slog.HandlerOptions{
			Level: parseLogLevel(cl.config.FileOutput.Level),
		}))
	}

	switch len(handlers) {
	case 0:
		cl.baseHandler = newTextHandler(io.Discard, slog.LevelError, cl.timezone)
	case 1:
		cl.baseHandler = handlers[0]
	default:
		cl.baseHandler = fanout(handlers)
	}
	return nil
}

// Module returns a logger scoped to a specific module
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	level, ok := cl.moduleLevels[name]
	cl.mu.RUnlock()
	if !ok {
		level = parseLogLevel(cl.config.DefaultLevel)
	}

	return &moduleLogger{
		module: name,
		logger: slog.New(cl.baseHandler),
		level:  level,
	}
}

// Flush writes buffered file output to the OS
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.fileBuf == nil {
		return nil
	}
	return cl.fileBuf.Flush()
}

// Close flushes and closes the log file
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()

	var errs []error
	if cl.fileBuf != nil {
		if err := cl.fileBuf.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush log file: %w", err))
		}
		cl.fileBuf = nil
	}
	if cl.file != nil {
		if err := cl.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
		cl.file = nil
	}
	return errors.Join(errs...)
}

// NewSlogLogger creates a Logger writing text to w, for tests and tools.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if tz == nil {
		tz = time.UTC
	}
	lvl := parseSlogLevel(level)
	return &moduleLogger{
		logger: slog.New(newTextHandler(w, lvl, tz)),
		level:  lvl,
	}
}

// lockedWriter serializes writes into the shared bufio.Writer
type lockedWriter struct {
	w  io.Writer
	mu *sync.RWMutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func ensureFileDirectory(filePath string) error {
	if filePath == "" {
		return nil
	}
	dir := filepath.Dir(filePath)
	if dir == "." || dir == filePath {
		return nil
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// newTextHandler builds the console handler: no timestamps, level and
// message first, times converted to the configured zone.
func newTextHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= traceLevelValue {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			if a.Value.Kind() == slog.KindTime {
				return slog.Time(a.Key, a.Value.Time().In(tz))
			}
			return a
		},
	})
}

func parseLogLevel(level string) slog.Level {
	return parseSlogLevel(LogLevel(level))
}

func parseSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// moduleLogger implements Logger for one module
type moduleLogger struct {
	module string
	logger *slog.Logger
	level  slog.Level
	fields []Field
}

func (m *moduleLogger) Module(name string) Logger {
	if m == nil {
		return nil
	}
	module := name
	if m.module != "" {
		module = m.module + "." + name
	}
	return &moduleLogger{
		module: module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Clone(m.fields),
	}
}

func (m *moduleLogger) Trace(msg string, fields ...Field) { m.logAt(traceLevelValue, msg, fields) }
func (m *moduleLogger) Debug(msg string, fields ...Field) { m.logAt(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field)  { m.logAt(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field)  { m.logAt(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.logAt(slog.LevelError, msg, fields) }

func (m *moduleLogger) Log(level LogLevel, msg string, fields ...Field) {
	m.logAt(parseSlogLevel(level), msg, fields)
}

func (m *moduleLogger) With(fields ...Field) Logger {
	if m == nil {
		return nil
	}
	return &moduleLogger{
		module: m.module,
		logger: m.logger,
		level:  m.level,
		fields: slices.Concat(m.fields, fields),
	}
}

func (m *moduleLogger) WithContext(ctx context.Context) Logger {
	if m == nil || ctx == nil {
		return m
	}
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok || traceID == "" {
		return m
	}
	return m.With(String(traceIDKey, traceID))
}

// Flush is a no-op; the CentralLogger owns file buffers.
func (m *moduleLogger) Flush() error {
	return nil
}

func (m *moduleLogger) logAt(level slog.Level, msg string, fields []Field) {
	if m == nil || level < m.level {
		return
	}

	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for i := range m.fields {
		attrs = append(attrs, fieldToAttr(m.fields[i]))
	}
	for i := range fields {
		attrs = append(attrs, fieldToAttr(fields[i]))
	}
	m.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func roundFloat(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	return math.Round(val*floatPrecisionRatio) / floatPrecisionRatio
}

func fieldToAttr(f Field) slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case uint64:
		return slog.Uint64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, roundFloat(v))
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	default:
		return slog.Any(f.Key, v)
	}
}

// fanoutHandler writes each record to every wrapped handler
type fanoutHandler []slog.Handler

func fanout(handlers []slog.Handler) slog.Handler {
	return fanoutHandler(handlers)
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler requires the record by value
func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithGroup(name)
	}
	return out
}
