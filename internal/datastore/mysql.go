package datastore

import (
	"fmt"
	"net"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/errors"
)

// mysqlDSN builds the driver DSN from settings
func mysqlDSN(s *conf.MySQLSettings) string {
	cfg := gomysql.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// openMySQL opens the MySQL database described by settings
func openMySQL(s *conf.MySQLSettings, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(mysqlDSN(s)), &gorm.Config{Logger: log})
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open MySQL database: %w", err)).
			Category(errors.CategoryDatabase).
			Component("datastore").
			Context("host", s.Host).
			Context("port", s.Port).
			Context("database", s.Database).
			Build()
	}
	return db, nil
}
