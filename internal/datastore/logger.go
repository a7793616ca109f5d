// Package datastore provides logging infrastructure for database operations
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/observability/metrics"
)

// DefaultSlowQueryThreshold defines the duration after which a query is considered slow.
const DefaultSlowQueryThreshold = 1 * time.Second

// GetLogger returns the datastore module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// GormLogger implements GORM's logger interface with structured logging and metrics
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
	log           logger.Logger
	metrics       metrics.Recorder
}

// NewGormLogger creates a new GORM logger instance
func NewGormLogger(slowThreshold time.Duration, logLevel gormlogger.LogLevel, log logger.Logger, rec metrics.Recorder) *GormLogger {
	if log == nil {
		log = GetLogger()
	}
	return &GormLogger{
		SlowThreshold: slowThreshold,
		LogLevel:      logLevel,
		log:           log.Module("gorm"),
		metrics:       metrics.OrNop(rec),
	}
}

// LogMode implements logger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info implements logger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Info {
		l.log.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements logger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Warn {
		l.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements logger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= gormlogger.Error {
		l.log.WithContext(ctx).Error("GORM error", logger.String("msg", fmt.Sprintf(msg, data...)))
		l.metrics.RecordError("gorm_internal", "gorm_error")
	}
}

// Trace implements logger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	operation, table := parseSQLOperation(sql)
	op := operation + ":" + table

	l.metrics.RecordDuration(op, elapsed.Seconds())

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		enhancedErr := errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "sql_query").
			Context("duration_ms", elapsed.Milliseconds()).
			Build()

		l.log.WithContext(ctx).Error("database query failed",
			logger.Error(enhancedErr),
			logger.String("operation", operation),
			logger.String("table", table),
			logger.Duration("duration", elapsed),
			logger.Int64("rows_affected", rows))

		l.metrics.RecordOperation(op, metrics.StatusError)
		l.metrics.RecordError(op, categorizeError(err))

	case elapsed > l.SlowThreshold && l.SlowThreshold != 0:
		l.log.WithContext(ctx).Warn("slow query detected",
			logger.String("operation", operation),
			logger.String("table", table),
			logger.Duration("duration", elapsed),
			logger.Int64("rows_affected", rows),
			logger.Duration("threshold", l.SlowThreshold))
		l.metrics.RecordOperation(op, metrics.StatusSuccess)

	default:
		if l.LogLevel >= gormlogger.Info {
			l.log.WithContext(ctx).Debug("query executed",
				logger.String("sql", sql),
				logger.Duration("duration", elapsed),
				logger.Int64("rows_affected", rows))
		}
		l.metrics.RecordOperation(op, metrics.StatusSuccess)
	}
}
