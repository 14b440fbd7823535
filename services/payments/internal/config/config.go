// Package config содержит конфигурацию payments API.
package config

import (
	"fmt"

	"example.com/send-money/pkg/config"
)

// Config содержит полную конфигурацию payments API.
type Config struct {
	App     config.AppConfig
	HTTP    config.HTTPConfig
	MySQL   config.MySQLConfig
	JWT     config.JWTConfig
	Jaeger  config.JaegerConfig
	Metrics config.MetricsConfig

	AutoMigrate bool `env:"MYSQL_AUTO_MIGRATE" envDefault:"true"`
}

// Load загружает конфигурацию из окружения (и .env, если он есть).
func Load() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}

	// без ключа API открыт, что допустимо только локально
	if cfg.JWT.PublicKeyPath == "" && !cfg.App.IsDevelopment() {
		return nil, fmt.Errorf("JWT_PUBLIC_KEY_PATH обязателен в окружении %s", cfg.App.Env)
	}
	return cfg, nil
}
