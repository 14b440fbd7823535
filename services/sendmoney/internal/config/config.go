// Package config содержит конфигурацию send-money.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"example.com/send-money/pkg/config"
)

// Config содержит полную конфигурацию send-money.
type Config struct {
	App          config.AppConfig
	HTTP         config.HTTPConfig
	Redis        config.RedisConfig
	Kafka        config.KafkaConfig
	JWT          config.JWTConfig
	Jaeger       config.JaegerConfig
	Metrics      config.MetricsConfig
	GovPay       GovPayConfig
	PaymentsAPI  PaymentsAPIConfig
	Payment      PaymentConfig
	BankTransfer BankTransferConfig
	Sweep        SweepConfig
	RateLimit    RateLimitConfig
}

// GovPayConfig — платёжный шлюз.
type GovPayConfig struct {
	URL       string        `env:"GOVUK_PAY_URL,required"`
	AuthToken string        `env:"GOVUK_PAY_AUTH_TOKEN,required"`
	Timeout   time.Duration `env:"GOVUK_PAY_TIMEOUT" envDefault:"15s"`
}

// PaymentsAPIConfig — внутренний API платежей.
type PaymentsAPIConfig struct {
	URL      string        `env:"PAYMENTS_API_URL" envDefault:"http://localhost:8081"`
	Timeout  time.Duration `env:"PAYMENTS_API_TIMEOUT" envDefault:"15s"`
	PageSize int           `env:"PAYMENTS_API_PAGE_SIZE" envDefault:"500"`
}

// PaymentConfig — параметры оплаты картой.
type PaymentConfig struct {
	SiteURL                 string          `env:"SITE_URL" envDefault:"http://localhost:8080"`
	ServiceChargePercentage decimal.Decimal `env:"SERVICE_CHARGE_PERCENTAGE" envDefault:"0"`
	ServiceChargeFixed      decimal.Decimal `env:"SERVICE_CHARGE_FIXED" envDefault:"0"` // в фунтах

	// DelayedCaptureRollout — доля платежей (0–100), создаваемых с отложенным capture.
	DelayedCaptureRollout int  `env:"PAYMENT_DELAYED_CAPTURE_ROLLOUT_PERCENTAGE" envDefault:"0"`
	SecurityCheckRequired bool `env:"SECURITY_CHECK_REQUIRED" envDefault:"false"`

	ShowDebitCardOption    bool `env:"SHOW_DEBIT_CARD_OPTION" envDefault:"true"`
	ShowBankTransferOption bool `env:"SHOW_BANK_TRANSFER_OPTION" envDefault:"false"`
}

// BankTransferConfig — реквизиты счёта для банковского перевода.
type BankTransferConfig struct {
	AccountNumber string `env:"NOMS_HOLDING_ACCOUNT_NUMBER"`
	SortCode      string `env:"NOMS_HOLDING_ACCOUNT_SORT_CODE"`
}

// SweepConfig — плановая сверка.
type SweepConfig struct {
	Interval        time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	IncompleteDelay time.Duration `env:"CHECK_INCOMPLETE_PAYMENT_DELAY" envDefault:"30m"`
	LeaderElection  bool          `env:"LEADER_ELECTION_ENABLED" envDefault:"true"` // false — экземпляр всегда основной
	LeaderLockKey   string        `env:"LEADER_LOCK_KEY" envDefault:"sendmoney:leader"`
	LeaderLockTTL   time.Duration `env:"LEADER_LOCK_TTL" envDefault:"15m"`
}

// RateLimitConfig — ограничение запросов к публичным маршрутам.
type RateLimitConfig struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load загружает конфигурацию из окружения; envFile != "" — сначала из файла.
func Load(envFile string) (*Config, error) {
	cfg := &Config{}

	var err error
	if envFile != "" {
		err = config.LoadFromFile(envFile, cfg)
	} else {
		err = config.Load(cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Payment.DelayedCaptureRollout < 0 || c.Payment.DelayedCaptureRollout > 100 {
		return fmt.Errorf("PAYMENT_DELAYED_CAPTURE_ROLLOUT_PERCENTAGE должен быть в диапазоне 0..100, получено %d",
			c.Payment.DelayedCaptureRollout)
	}
	if c.Payment.ServiceChargePercentage.IsNegative() || c.Payment.ServiceChargeFixed.IsNegative() {
		return fmt.Errorf("сервисный сбор не может быть отрицательным")
	}
	return nil
}
