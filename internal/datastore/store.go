// Package datastore persists realized source and object tables through gorm.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/observability/metrics"
)

// Table names used for metrics labels
const (
	TableSourceRows = "source_rows"
	TableObjectRows = "object_rows"
)

// rowsRecorder is implemented by recorders that count written rows
type rowsRecorder interface {
	RecordRowsWritten(table string, n int)
}

// Store writes tables of one or more runs to a database
type Store struct {
	DB        *gorm.DB
	Type      string
	BatchSize int
	log       logger.Logger
	metrics   metrics.Recorder
}

// Open connects to the database selected by settings and migrates the schema
func Open(settings *conf.DatastoreSettings, log logger.Logger, rec metrics.Recorder) (*Store, error) {
	if log == nil {
		log = GetLogger()
	}
	rec = metrics.OrNop(rec)
	gormLog := NewGormLogger(DefaultSlowQueryThreshold, gormlogger.Warn, log, rec)

	var (
		db  *gorm.DB
		err error
	)
	switch settings.Type {
	case "sqlite":
		db, err = openSQLite(settings.SQLite.Path, gormLog)
	case "mysql":
		db, err = openMySQL(&settings.MySQL, gormLog)
	default:
		return nil, errors.Newf("unsupported datastore type %q", settings.Type).
			Category(errors.CategoryConfiguration).
			Component("datastore").
			Build()
	}
	if err != nil {
		return nil, err
	}

	s := &Store{
		DB:        db,
		Type:      settings.Type,
		BatchSize: settings.BatchSize,
		log:       log.With(logger.String("db_type", settings.Type)),
		metrics:   rec,
	}
	if s.BatchSize <= 0 {
		s.BatchSize = conf.DefaultBatchSize
	}
	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	start := time.Now()
	if err := s.DB.AutoMigrate(&Run{}, &SourceRow{}, &ObjectRow{}); err != nil {
		s.metrics.RecordError(metrics.OpDbMigrate, categorizeError(err))
		return errors.New(fmt.Errorf("failed to auto-migrate %s database: %w", s.Type, err)).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Build()
	}
	s.metrics.RecordOperation(metrics.OpDbMigrate, metrics.StatusSuccess)
	s.log.Debug("database schema migrated", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// SaveRun stores the run summary
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if err := s.DB.WithContext(ctx).Create(run).Error; err != nil {
		return s.dbError(err, "runs", "save run")
	}
	return nil
}

// Runs lists stored runs, newest first
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, s.dbError(err, "runs", "list runs")
	}
	return runs, nil
}

// SaveSourceTable inserts every record of table under runID in one transaction
func (s *Store) SaveSourceTable(ctx context.Context, runID string, table *catalog.SourceTable) error {
	rows := make([]SourceRow, len(table.Records))
	for i := range table.Records {
		rows[i] = newSourceRow(runID, &table.Records[i])
	}
	return insertBatches(ctx, s, TableSourceRows, rows)
}

// SaveObjectTable inserts one row per lens and band under runID
func (s *Store) SaveObjectTable(ctx context.Context, runID string, table *catalog.ObjectTable) error {
	rows := make([]ObjectRow, 0, len(table.Records)*len(catalog.ObjectBands))
	for i := range table.Records {
		rows = append(rows, newObjectRows(runID, &table.Records[i], table.IncludeStd)...)
	}
	return insertBatches(ctx, s, TableObjectRows, rows)
}

func insertBatches[T any](ctx context.Context, s *Store, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	op := metrics.OpDbInsert + ":" + table
	start := time.Now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, s.BatchSize).Error
	})
	s.metrics.RecordDuration(op, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordOperation(op, metrics.StatusError)
		return s.dbError(err, table, "insert")
	}

	s.metrics.RecordOperation(op, metrics.StatusSuccess)
	if rr, ok := s.metrics.(rowsRecorder); ok {
		rr.RecordRowsWritten(table, len(rows))
	}
	s.log.Info("rows stored",
		logger.String("table", table),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// LoadSourceTable reads back the source table of runID in insertion order
func (s *Store) LoadSourceTable(ctx context.Context, runID string) (*catalog.SourceTable, error) {
	var rows []SourceRow
	if err := s.DB.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, s.dbError(err, TableSourceRows, "load")
	}
	table := &catalog.SourceTable{Records: make([]catalog.SourceRecord, len(rows))}
	for i := range rows {
		table.Records[i] = rows[i].record()
	}
	return table, nil
}

// LoadObjectTable reads back the object table of runID in insertion order
func (s *Store) LoadObjectTable(ctx context.Context, runID string, includeStd bool) (*catalog.ObjectTable, error) {
	var rows []ObjectRow
	if err := s.DB.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, s.dbError(err, TableObjectRows, "load")
	}

	table := &catalog.ObjectTable{IncludeStd: includeStd}
	index := make(map[int]int)
	for i := range rows {
		r := &rows[i]
		pos, ok := index[r.LensID]
		if !ok {
			pos = len(table.Records)
			index[r.LensID] = pos
			table.Records = append(table.Records, catalog.ObjectRecord{LensID: r.LensID})
		}
		for bi, band := range catalog.ObjectBands {
			if band == r.Band {
				table.Records[pos].Bands[bi] = r.bandStats()
			}
		}
	}
	return table, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) dbError(err error, table, action string) error {
	return errors.New(fmt.Errorf("%s %s: %w", action, table, err)).
		Category(errors.CategoryDatabase).
		Component("datastore").
		Context("table", table).
		Build()
}
