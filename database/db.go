// Package database opens the sqlite database behind the durable note store,
// runs its embedded migrations and exposes it as a lifecycle component.
package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/voicenotes/logger"
)

// DB wraps a GORM handle.
type DB struct {
	gorm   *gorm.DB
	log    *logger.Logger
	mu     sync.Mutex
	closed bool
}

// Open connects with retries and configures the pool.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("database connection canceled: %w", ctx.Err())
		}
		var db *gorm.DB
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if err = sqlDB.PingContext(ctx); err == nil {
				sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
				sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
				sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
				log.Info("Database connection established", logger.Fields("dsn", cfg.DSN, "attempt", attempt))
				return &DB{gorm: db, log: log}, nil
			}
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			log.Warn("Database connection attempt failed, retrying", logger.Fields(
				"attempt", attempt, "error", err.Error(), "backoff", backoff.String()))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("database connection canceled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.MaxRetries, err)
}

// Close closes the pool. Safe to call more than once.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	d.closed = true
	d.log.Info("Closing database connection")
	return sqlDB.Close()
}

func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.gorm.WithContext(ctx)
}

// Transaction runs fn in a transaction, rolling back on error or panic.
func (d *DB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

type gormLogger struct {
	log           *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{log: log.WithComponent("gorm"), level: level, slowThreshold: slow}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{log: l.log, level: level, slowThreshold: l.slowThreshold}
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := logger.Fields("sql", sql, "duration", elapsed.String(), "rows", rows)
	switch {
	case err != nil && !IsNotFound(err):
		fields["error"] = err.Error()
		l.log.WithContext(ctx).Error("Query error", fields)
	case elapsed > l.slowThreshold:
		l.log.WithContext(ctx).Warn("Slow query", fields)
	case l.level >= gormlogger.Info:
		l.log.WithContext(ctx).Debug("Query", fields)
	}
}
