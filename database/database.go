package database

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"tushare-db-syncer/config"
)

const UpsertBatchSize = 1000

var (
	// List entities to auto-migrate
	entities = []interface{}{
		StockBasic{},
	}
	logQueries bool
)

func init() {
	config.GlobalConfigCallback.AddCallback(func(cfg config.GlobalConfig) {
		logQueries = cfg.DBConfig().LogQueries
	})
}

// ConnectAndInitialize opens the database and runs the idempotent schema
// migration. Safe to call on every sync.
func ConnectAndInitialize(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ConnectAndInitialize: Connect: %w", err)
	}

	err = db.AutoMigrate(entities...)
	if err != nil {
		return nil, errors.Wrap(err, "ConnectAndInitialize: AutoMigrate")
	}

	return db, nil
}

func Connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}

	return db, nil
}

func connect(ctx context.Context, dsn string) (*gorm.DB, error) {
	gormConfig := gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		Logger:          gormlogger.Default.LogMode(getGormLogLevel()),
		CreateBatchSize: UpsertBatchSize,
	}

	db, err := gorm.Open(postgres.Open(dsn), &gormConfig)
	if err != nil {
		return nil, err
	}

	return db.WithContext(ctx), nil
}

func getGormLogLevel() gormlogger.LogLevel {
	if logQueries {
		return gormlogger.Info
	}

	return gormlogger.Silent
}

// Close releases the connection pool behind a gorm session. The syncer opens
// one connection scope per invocation and closes it when done.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
