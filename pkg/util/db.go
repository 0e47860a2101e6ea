package util

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase opens the configured database. An in-memory sqlite database lives on a
// single connection, so the pool is pinned to one connection for it.
func InitDatabase(log logger.Interface, driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if log != nil {
		cfg.Logger = log
	}
	db, err := createDatabaseInstance(cfg, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName(driver), err)
	}
	if driverName(driver) == "sqlite" && (dsn == "" || strings.Contains(dsn, ":memory:")) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	return db, nil
}

func driverName(driver string) string {
	switch driver {
	case "mysql", "pg":
		return driver
	}
	return "sqlite"
}
