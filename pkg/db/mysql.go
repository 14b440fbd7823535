// Package db предоставляет общие функции подключения к хранилищам:
// MySQL (payments API) и Redis (send-money).
package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"example.com/send-money/pkg/config"
)

// DatetimePrecision — точность datetime колонок по умолчанию (микросекунды).
// received_at вида 23:59:59.999999 не должен округляться в следующий день.
const DatetimePrecision = 6

// ConnectMySQL создаёт подключение к MySQL через GORM, проверяет его
// и настраивает пул соединений.
func ConnectMySQL(cfg config.MySQLConfig, debug bool) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(newDialector(cfg), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MySQL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ошибка ping MySQL %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// newDialector собирает MySQL диалект с микросекундной точностью времени.
func newDialector(cfg config.MySQLConfig) gorm.Dialector {
	precision := DatetimePrecision
	return mysql.New(mysql.Config{
		DSN:                      cfg.DSN(),
		DefaultDatetimePrecision: &precision,
	})
}
