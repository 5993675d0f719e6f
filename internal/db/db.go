package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vanelang/review-flow/internal/config"
)

// Models lists every table owned by the service, in migration order.
func Models() []any {
	return []any{
		&User{}, &Widget{}, &Review{}, &APIUsage{}, &AuditLog{},
		&Plan{}, &Subscription{}, &UsageLimit{},
	}
}

// Connect opens a GORM connection using APP_DATABASE_URL (PostgreSQL URL)
// and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	logLevel := logger.Silent
	if cfg.IsDev() {
		logLevel = logger.Warn
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	gdb, err := gorm.Open(postgres.Open(dsn), Options(logLevel, true))
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if cfg.DBConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DBConnLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

// Options returns the gorm configuration shared by the server and tests.
// Timestamps are always written in UTC so bucketing is zone independent.
// Driver errors are translated so unique violations surface as
// gorm.ErrDuplicatedKey.
func Options(level logger.LogLevel, prepare bool) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		PrepareStmt:    prepare,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
