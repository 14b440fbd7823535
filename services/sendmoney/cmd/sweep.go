package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"example.com/send-money/services/sendmoney/internal/leader"
	"example.com/send-money/services/sendmoney/internal/reconcile"
)

func sweepCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Сверить незавершённые платежи со шлюзом",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "выполнить один проход и выйти")

	return cmd
}

func runSweep(ctx context.Context, once bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	cfg := a.cfg
	gate, release := leaderGate(a)
	defer release()

	sweeper := reconcile.NewSweeper(a.engine, a.store, gate, cfg.Sweep.IncompleteDelay)

	if once {
		report, err := sweeper.Run(ctx)
		if err != nil {
			return err
		}
		a.log.Info().
			Bool("skipped", report.Skipped).
			Int("total", report.Total).
			Int("errors", report.Errors).
			Msg("Проход сверки выполнен")
		return nil
	}

	reconcile.NewWorker(sweeper, cfg.Sweep.Interval).Run(ctx)
	return nil
}

// leaderGate — Redis блокировка, либо экземпляр всегда основной.
func leaderGate(a *app) (reconcile.LeaderGate, func()) {
	if !a.cfg.Sweep.LeaderElection {
		a.log.Info().Msg("Выбор основного экземпляра отключён")
		return leader.Static(true), func() {}
	}

	gate := leader.NewRedisGate(a.redis, a.cfg.Sweep.LeaderLockKey, a.cfg.Sweep.LeaderLockTTL)
	a.log.Info().Str("instance_id", gate.InstanceID()).Msg("Выбор основного экземпляра через Redis")

	return gate, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gate.Release(ctx); err != nil {
			a.log.Warn().Err(err).Msg("Не удалось освободить блокировку основного экземпляра")
		}
	}
}
