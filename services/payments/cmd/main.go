// Payments API — внутренний сервис хранения платежей.
// Принимает создание, чтение, список и PATCH платежей от send-money;
// доступ только по сервисному JWT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"example.com/send-money/pkg/db"
	"example.com/send-money/pkg/healthcheck"
	"example.com/send-money/pkg/jwt"
	"example.com/send-money/pkg/logger"
	"example.com/send-money/pkg/metrics"
	"example.com/send-money/pkg/middleware"
	"example.com/send-money/pkg/tracing"
	"example.com/send-money/services/payments/internal/config"
	"example.com/send-money/services/payments/internal/handler"
	"example.com/send-money/services/payments/internal/repository"
	"example.com/send-money/services/payments/internal/service"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Pretty: cfg.App.LogPretty,
	})
	log := logger.With().Str("service", handler.ServiceName).Logger()

	log.Info().
		Str("env", cfg.App.Env).
		Str("addr", cfg.HTTP.Addr()).
		Msg("Запуск Payments API")

	// === Observability: Tracing ===

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    handler.ServiceName,
		Environment:    cfg.App.Env,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Подключение к MySQL ===

	gormDB, err := db.ConnectMySQL(cfg.MySQL, cfg.App.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("Ошибка подключения к MySQL")
	}
	log.Info().Msg("Подключение к MySQL установлено")

	if cfg.AutoMigrate {
		if err := gormDB.AutoMigrate(&repository.PaymentModel{}); err != nil {
			log.Fatal().Err(err).Msg("Ошибка миграции таблицы payments")
		}
	}

	readinessCheck := healthcheck.Composite(healthcheck.MySQL(gormDB))

	// === Сервисные токены ===

	var auth middleware.TokenValidator
	if cfg.JWT.PublicKeyPath != "" {
		manager, err := jwt.NewManager(jwt.Config{
			PublicKeyPath: cfg.JWT.PublicKeyPath,
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Ошибка загрузки JWT ключа")
		}
		auth = manager
	} else {
		log.Warn().Msg("JWT_PUBLIC_KEY_PATH не задан, API без авторизации")
	}

	// === Observability: Metrics ===

	var metricsServer *metrics.Server
	var metricsWg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(
			cfg.Metrics.Addr(),
			handler.ServiceName,
			metrics.WithReadinessCheck(metrics.ReadinessChecker(readinessCheck)),
		)
		metricsWg.Add(1)
		go func() {
			defer metricsWg.Done()
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// === HTTP API ===

	paymentRepo := repository.NewPaymentRepository(gormDB)
	paymentService := service.NewPaymentService(paymentRepo)

	router := handler.NewRouter(handler.RouterConfig{
		Service:        paymentService,
		Auth:           auth,
		ReadinessCheck: readinessCheck,
		Debug:          cfg.App.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP сервер запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")
	case err := <-errCh:
		log.Error().Err(err).Msg("Ошибка HTTP сервера")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка graceful shutdown HTTP сервера")
	}

	// Закрываем подключение к MySQL
	if sqlDB, err := gormDB.DB(); err == nil && sqlDB != nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия MySQL")
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
		metricsWg.Wait()
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	log.Info().Msg("Payments API остановлен")
}
