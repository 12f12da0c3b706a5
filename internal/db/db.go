package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"equipment-maintenance-dashboard/config"
	"equipment-maintenance-dashboard/internal/model"
)

// Init opens the subscription database and runs migrations. DSNs starting
// with "sqlite:" or "file:" use sqlite, anything else postgres.
func Init(cfg *config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogQueries {
		level = logger.Info
	}

	db, err := gorm.Open(dialector(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info().Str("driver", db.Dialector.Name()).Msg("running database migrations")
	if err := db.AutoMigrate(&model.PushSubscription{}); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	return db, nil
}

func dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}
