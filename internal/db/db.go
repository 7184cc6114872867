package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shubhayu-dev/Sanrakshan/config"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	logger.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("database initialization complete")
	return db, nil
}

// Migrate runs schema migrations for all application models. Split out so
// tests can migrate an in-memory database without a postgres DSN.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.StudentProfile{},
		&model.StorageEntry{},
		&model.StoredItem{},
		&model.UniqueCode{},
		&model.CodeScan{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}
