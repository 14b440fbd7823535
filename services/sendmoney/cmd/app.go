package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"example.com/send-money/pkg/db"
	"example.com/send-money/pkg/healthcheck"
	"example.com/send-money/pkg/jwt"
	"example.com/send-money/pkg/kafka"
	"example.com/send-money/pkg/logger"
	"example.com/send-money/pkg/metrics"
	"example.com/send-money/pkg/tracing"
	"example.com/send-money/services/sendmoney/internal/config"
	"example.com/send-money/services/sendmoney/internal/govpay"
	"example.com/send-money/services/sendmoney/internal/notify"
	"example.com/send-money/services/sendmoney/internal/paymentapi"
	"example.com/send-money/services/sendmoney/internal/reconcile"
)

// serviceName — имя сервиса в логах, метриках и трассах.
const serviceName = "send-money"

// app — общие зависимости команд serve и sweep.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	redis    *redis.Client
	gateway  *govpay.Client
	store    *paymentapi.Client
	engine   *reconcile.Engine
	metrics  *metrics.Server
	closers  []func(context.Context) error
	readyFns []healthcheck.Check
}

// newApp загружает конфигурацию и собирает зависимости.
// Ресурсы освобождаются через app.Close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})

	a := &app{
		cfg: cfg,
		log: logger.With().Str("service", serviceName).Logger(),
	}

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    serviceName,
		Environment:    cfg.App.Env,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("Не удалось инициализировать tracing, продолжаем без него")
	} else {
		a.closers = append(a.closers, shutdownTracer)
	}

	a.redis, err = db.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.redis.Close() })
	a.readyFns = append(a.readyFns, healthcheck.Redis(a.redis))

	tokens, err := serviceTokens(cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.gateway = govpay.New(govpay.Config{
		BaseURL:   cfg.GovPay.URL,
		AuthToken: cfg.GovPay.AuthToken,
		Timeout:   cfg.GovPay.Timeout,
	})
	a.store = paymentapi.New(paymentapi.Config{
		BaseURL:  cfg.PaymentsAPI.URL,
		Token:    tokens.Token,
		Timeout:  cfg.PaymentsAPI.Timeout,
		PageSize: cfg.PaymentsAPI.PageSize,
	})

	publisher, err := a.notificationPublisher()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.engine = reconcile.NewEngine(
		a.gateway,
		a.store,
		notify.NewDispatcher(a.redis, publisher),
		reconcile.CapturePolicy{SecurityCheckRequired: cfg.Payment.SecurityCheckRequired},
	)

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewServer(cfg.Metrics.Addr(), serviceName,
			metrics.WithReadinessCheck(healthcheck.Composite(a.readyFns...)))
		go func() {
			if err := a.metrics.Start(); err != nil {
				a.log.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
		a.closers = append(a.closers, a.metrics.Shutdown)
	}

	return a, nil
}

// serviceTokens — источник сервисных JWT для payments API.
func serviceTokens(cfg *config.Config) (*jwt.TokenSource, error) {
	manager, err := jwt.NewManager(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
		TokenTTL:       cfg.JWT.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации JWT: %w", err)
	}
	if !manager.CanSign() {
		return nil, errors.New("JWT_PRIVATE_KEY_PATH обязателен: send-money подписывает сервисные токены")
	}
	return jwt.NewTokenSource(manager, serviceName, "payments:read payments:write"), nil
}

// notificationPublisher — Kafka, если брокеры заданы, иначе только лог.
func (a *app) notificationPublisher() (notify.Publisher, error) {
	if !a.cfg.Kafka.Enabled() {
		a.log.Warn().Msg("Kafka не настроена: уведомления только пишутся в лог")
		return notify.LogPublisher{}, nil
	}

	producer, err := kafka.NewProducer(kafka.Config{Brokers: a.cfg.Kafka.Brokers})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })

	return notify.NewKafkaPublisher(producer, a.cfg.Kafka.NotificationTopic), nil
}

// Close освобождает ресурсы в обратном порядке.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Error().Err(err).Msg("Ошибка освобождения ресурса")
		}
	}
	a.closers = nil
}
