package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/send-money/pkg/logger"
	"example.com/send-money/pkg/metrics"
	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/remote"
)

// SourceSweep — метка исходов планового прохода в метриках.
const SourceSweep = "sweep"

// DefaultIncompleteDelay — платежи моложе этого возраста проход не трогает:
// первым их сверяет возврат плательщика со страницы шлюза.
const DefaultIncompleteDelay = 30 * time.Minute

// PendingLister — выборка pending платежей.
type PendingLister interface {
	ListPending(ctx context.Context, modifiedBefore time.Time) ([]*domain.Payment, error)
}

// LeaderGate сообщает, является ли экземпляр основным.
// Проход выполняется только на основном экземпляре.
type LeaderGate interface {
	IsPrimaryInstance(ctx context.Context) bool
}

// Report — итог одного прохода.
type Report struct {
	Skipped  bool           // экземпляр не основной
	Total    int            // pending платежей в выборке
	Outcomes map[string]int // решение → количество
	Errors   int            // платежи, оставшиеся pending из-за ошибки
	Notified int
	Duration time.Duration
}

// Sweeper — плановый проход по всем pending платежам.
type Sweeper struct {
	engine *Engine
	store  PendingLister
	gate   LeaderGate
	delay  time.Duration
	now    func() time.Time
}

// NewSweeper создаёт Sweeper. delay <= 0 — DefaultIncompleteDelay.
func NewSweeper(engine *Engine, store PendingLister, gate LeaderGate, delay time.Duration) *Sweeper {
	if delay <= 0 {
		delay = DefaultIncompleteDelay
	}
	return &Sweeper{engine: engine, store: store, gate: gate, delay: delay, now: time.Now}
}

// Run выполняет один проход. Ошибка одного платежа не прерывает проход;
// ошибка возвращается только если не удалось получить список платежей.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{Outcomes: make(map[string]int)}

	ctx = logger.WithCorrelationID(ctx, uuid.New().String())
	log := logger.Ctx(ctx)

	if !s.gate.IsPrimaryInstance(ctx) {
		log.Debug().Msg("Экземпляр не основной, проход сверки пропущен")
		report.Skipped = true
		metrics.SweepRunsTotal.WithLabelValues("skipped").Inc()
		return report, nil
	}

	payments, err := s.store.ListPending(ctx, s.now().Add(-s.delay))
	if err != nil {
		metrics.SweepRunsTotal.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("ошибка выборки pending платежей: %w", err)
	}
	report.Total = len(payments)

	log.Info().Int("count", len(payments)).Msg("Начало прохода сверки платежей")

	for _, p := range payments {
		if ctx.Err() != nil {
			log.Warn().Msg("Проход сверки прерван: контекст отменён")
			break
		}

		res, err := s.reconcileOne(ctx, p)
		if err != nil {
			report.Errors++
			metrics.RecordOutcome(SourceSweep, "error")
			logFailure(ctx, p, err)
			continue
		}

		outcome := res.Decision.Kind.String()
		report.Outcomes[outcome]++
		metrics.RecordOutcome(SourceSweep, outcome)
		if res.Notified {
			report.Notified++
		}
	}

	report.Duration = time.Since(start)
	metrics.SweepDuration.Observe(report.Duration.Seconds())
	metrics.SweepRunsTotal.WithLabelValues("completed").Inc()

	log.Info().
		Int("total", report.Total).
		Int("errors", report.Errors).
		Int("notified", report.Notified).
		Interface("outcomes", report.Outcomes).
		Dur("duration", report.Duration).
		Msg("Проход сверки завершён")

	return report, nil
}

// reconcileOne изолирует платёж: паника превращается в ошибку этого платежа.
func (s *Sweeper) reconcileOne(ctx context.Context, p *domain.Payment) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при сверке платежа: %v", r)
		}
	}()
	return s.engine.Reconcile(ctx, p)
}

// logFailure логирует ошибку платежа по категориям таксономии.
func logFailure(ctx context.Context, p *domain.Payment, err error) {
	log := logger.Ctx(ctx).With().
		Str("payment_ref", p.Reference).
		Str("short_ref", p.ShortReference()).
		Str("processor_id", p.ProcessorID).
		Logger()

	var httpErr *remote.HTTPError

	switch {
	case errors.Is(err, remote.ErrAuthentication):
		log.Error().Err(err).Str("alert", "authentication").Msg("Плановая сверка: ошибка аутентификации")
	case errors.Is(err, remote.ErrTimeout):
		log.Warn().Err(err).Msg("Плановая сверка: таймаут, платёж будет проверен в следующем проходе")
	case errors.As(err, &httpErr):
		event := log.Error().Err(err).Int("http_status", httpErr.Status)
		withBody(event, httpErr.Body).Msg("Плановая сверка: ошибка внешнего API")
	default:
		log.Error().Err(err).Msg("Плановая сверка: ошибка обработки платежа")
	}
}

func withBody(event *zerolog.Event, body string) *zerolog.Event {
	if body == "" {
		return event
	}
	return event.Str("response_body", body)
}
