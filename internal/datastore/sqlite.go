package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/slrealizer/internal/errors"
)

// openSQLite opens the SQLite database at path, creating its directory
func openSQLite(path string, log gormlogger.Interface) (*gorm.DB, error) {
	if path == "" {
		return nil, errors.Newf("sqlite path is empty").
			Category(errors.CategoryConfiguration).
			Component("datastore").
			Build()
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.FileError(fmt.Errorf("create database directory: %w", err), path)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: log})
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Category(errors.CategoryDatabase).
			Component("datastore").
			FileContext(path).
			Build()
	}
	return db, nil
}
