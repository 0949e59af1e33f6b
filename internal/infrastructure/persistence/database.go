package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/stockrecon/internal/infrastructure/config"
	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database is the shared PostgreSQL pool. DB is handed to the repositories;
// the raw handle is kept for probes and shutdown.
type Database struct {
	DB  *gorm.DB
	sql *sql.DB
}

// NewDatabase connects to PostgreSQL and verifies the connection. Statements
// that fail on lock contention are logged as warnings because the
// reconciliation path retries them.
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger, slowThreshold time.Duration) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.NewGormLogger(log, logger.GormConfig{
			Level:         logger.ParseGormLevel(cfg.LogLevel),
			SlowThreshold: slowThreshold,
			Contention:    IsContention,
		}),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d, err := wrapDatabase(db)
	if err != nil {
		return nil, err
	}
	d.sql.SetMaxOpenConns(cfg.MaxOpenConns)
	d.sql.SetMaxIdleConns(cfg.MaxIdleConns)
	d.sql.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	d.sql.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

func wrapDatabase(db *gorm.DB) (*Database, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	return &Database{DB: db, sql: sqlDB}, nil
}

// Ping implements the readiness check
func (d *Database) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Close releases the pool
func (d *Database) Close() error {
	return d.sql.Close()
}
