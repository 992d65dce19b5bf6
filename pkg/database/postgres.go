package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Payphone-Digital/contacts-api/config"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Open connects to PostgreSQL with the pool settings from cfg. Driver errors
// are translated so unique violations surface as gorm.ErrDuplicatedKey.
func Open(cfg *config.Config) (*gorm.DB, error) {
	startTime := time.Now()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseConnectionString(),
		PreferSimpleProtocol: false,
	}), gormConfig(cfg.App.Environment))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.GetLogger().Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("connection_time", time.Since(startTime)),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	return db, nil
}

func gormConfig(env string) *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogLevel(env)),
		TranslateError: true,
		PrepareStmt:    true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func gormLogLevel(env string) gormLogger.LogLevel {
	switch env {
	case "production":
		return gormLogger.Silent
	case "staging":
		return gormLogger.Warn
	default:
		return gormLogger.Info
	}
}

// Close closes the pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance for closing: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	logger.GetLogger().Info("Database connection closed")
	return nil
}
