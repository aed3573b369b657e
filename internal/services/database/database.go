package database

import (
	"fmt"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"gorm.io/gorm"
)

// DB is DataDeck's own metadata store: projects, members, saved data
// sources. Customer databases are never opened through this layer; they
// are probed ephemerally by the connections service.
type DB struct {
	*gorm.DB
	config     models.DatabaseConfig
	driverName string
}

func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) Ping() error {
	if db.DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (db *DB) DriverName() string {
	return db.driverName
}

func (db *DB) setConnectionPool() {
	if db.DB == nil {
		return
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}

	if db.config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(db.config.MaxOpenConns)
	}
	if db.config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(db.config.MaxIdleConns)
	}
}

func New(config models.DatabaseConfig) (*DB, error) {
	switch config.Type {
	case models.StorePostgreSQL:
		return newPostgreSQL(config)
	case models.StoreMySQL:
		return newMySQL(config)
	case models.StoreSQLite:
		return newSQLite(config)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}
