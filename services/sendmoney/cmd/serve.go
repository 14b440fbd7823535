package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"example.com/send-money/pkg/healthcheck"
	"example.com/send-money/services/sendmoney/internal/handler"
	"example.com/send-money/services/sendmoney/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API оплаты",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	cfg := a.cfg
	flow := service.NewPaymentService(a.gateway, a.store, a.engine, service.Config{
		SiteURL:                 cfg.Payment.SiteURL,
		ServiceChargePercentage: cfg.Payment.ServiceChargePercentage,
		ServiceChargeFixed:      cfg.Payment.ServiceChargeFixed,
		DelayedCaptureRollout:   cfg.Payment.DelayedCaptureRollout,
		BankAccountNumber:       cfg.BankTransfer.AccountNumber,
		BankSortCode:            cfg.BankTransfer.SortCode,
	})

	routerCfg := handler.RouterConfig{
		Flow: flow,
		Options: handler.Options{
			DebitCard:    cfg.Payment.ShowDebitCardOption,
			BankTransfer: cfg.Payment.ShowBankTransferOption,
		},
		ReadinessCheck: handler.ReadinessChecker(healthcheck.Composite(a.readyFns...)),
		Debug:          cfg.App.IsDevelopment(),
	}
	if cfg.RateLimit.Enabled {
		routerCfg.Redis = a.redis
		routerCfg.RateLimit = cfg.RateLimit.Requests
		routerCfg.RateWindow = cfg.RateLimit.Window
	}

	router, err := handler.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("ошибка создания роутера: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("HTTP сервер запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		a.log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")
	case err := <-errCh:
		return fmt.Errorf("ошибка HTTP сервера: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Ошибка graceful shutdown HTTP сервера")
	}

	a.log.Info().Msg("send-money остановлен")
	return nil
}
