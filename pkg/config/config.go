// Package config предоставляет загрузку конфигурации из переменных окружения.
// Здесь описаны общие секции (App, HTTP, MySQL, Redis, Kafka, JWT, Jaeger, Metrics),
// из которых сервисы собирают собственные структуры конфигурации.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"send-money"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// HTTPConfig — настройки HTTP сервера.
type HTTPConfig struct {
	Host         string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Addr возвращает адрес HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"send_money"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
// loc=UTC: received_at и modified_at хранятся и сравниваются в UTC.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки подключения к Kafka.
// Пустой список брокеров отключает публикацию уведомлений.
type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	NotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"sendmoney.notifications"`
}

// Enabled возвращает true, если указан хотя бы один брокер.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// JWTConfig содержит настройки сервисных JWT токенов (RS256).
// PrivateKeyPath — только для сервиса, который подписывает токены (send-money).
// PublicKeyPath — для сервиса, который их проверяет (payments API).
type JWTConfig struct {
	PrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"send-money"`
	Audience       string        `env:"JWT_AUDIENCE" envDefault:"payments-api"`
	TokenTTL       time.Duration `env:"JWT_TOKEN_TTL" envDefault:"5m"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"false"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"` // OTLP gRPC порт
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load заполняет cfg из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load(cfg any) error {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}
	return nil
}

// LoadFromFile заполняет cfg из указанного .env файла и окружения.
func LoadFromFile(path string, cfg any) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}
	return nil
}
