package reconcile

import (
	"context"
	"time"

	"example.com/send-money/pkg/logger"
)

// DefaultSweepInterval — интервал между плановыми проходами.
const DefaultSweepInterval = 10 * time.Minute

// Worker запускает проход по таймеру до отмены контекста.
type Worker struct {
	sweeper  *Sweeper
	interval time.Duration
}

// NewWorker создаёт Worker. interval <= 0 — DefaultSweepInterval.
func NewWorker(sweeper *Sweeper, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Worker{sweeper: sweeper, interval: interval}
}

// Run выполняет проход сразу и затем каждые interval. Блокирует до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().Dur("interval", w.interval).Msg("Запуск планировщика сверки платежей")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Остановка планировщика сверки платежей")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if _, err := w.sweeper.Run(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("Проход сверки не выполнен")
	}
}
