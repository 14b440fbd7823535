// Package reconcile — сверка платежей со шлюзом: вычисление received_at,
// классификация снапшота шлюза, политика capture, применение перехода
// к платежу и плановый проход по всем pending платежам.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"example.com/send-money/pkg/logger"
	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
	"example.com/send-money/services/sendmoney/internal/remote"
)

// =============================================================================
// Зависимости
// =============================================================================

// Gateway — операции платёжного шлюза, нужные для сверки.
type Gateway interface {
	Fetch(ctx context.Context, processorID string) (*govpay.Payment, error)
	FetchEvents(ctx context.Context, processorID string) ([]govpay.Event, error)
	Capture(ctx context.Context, processorID string) error
}

// Store — запись результата сверки во внутренний API платежей.
type Store interface {
	Patch(ctx context.Context, reference string, update domain.PaymentUpdate) error
}

// Notifier отправляет письмо плательщику.
// sent == false: письмо этого типа по платежу уже было отправлено ранее.
type Notifier interface {
	Send(ctx context.Context, n domain.Notification) (sent bool, err error)
}

// =============================================================================
// Engine
// =============================================================================

// Result — итог сверки одного платежа.
type Result struct {
	Decision Decision
	Capture  *CaptureAction // nil, если платёж не был capturable
	Notified bool
}

// Engine сверяет один платёж со шлюзом. Используется и плановым
// проходом, и синхронной проверкой при возврате плательщика.
type Engine struct {
	gateway  Gateway
	store    Store
	notifier Notifier
	policy   CapturePolicy
	now      func() time.Time
	tracer   trace.Tracer
}

// NewEngine создаёт Engine.
func NewEngine(gateway Gateway, store Store, notifier Notifier, policy CapturePolicy) *Engine {
	return &Engine{
		gateway:  gateway,
		store:    store,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
		tracer:   otel.Tracer("send-money/reconcile"),
	}
}

// Reconcile получает снапшот шлюза, при необходимости выполняет capture,
// классифицирует платёж и применяет переход. Ошибка означает, что платёж
// остался pending и будет повторён в следующем проходе.
func (e *Engine) Reconcile(ctx context.Context, p *domain.Payment) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "reconcile.payment", trace.WithAttributes(
		attribute.String("payment.ref", p.Reference),
		attribute.String("payment.processor_id", p.ProcessorID),
	))
	defer span.End()

	ctx = logger.WithPayment(ctx, p.Reference, p.ShortReference())

	res, err := e.reconcile(ctx, p)
	span.SetAttributes(attribute.String("reconcile.decision", res.Decision.Kind.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
	}
	return res, err
}

func (e *Engine) reconcile(ctx context.Context, p *domain.Payment) (Result, error) {
	log := logger.Ctx(ctx)
	var res Result

	gw, err := e.fetch(ctx, p)
	if errors.Is(err, remote.ErrMalformedResponse) {
		return e.notDecidable(ctx, res, err), nil
	}
	if err != nil {
		return res, err
	}

	if gw != nil && gw.State.Status == govpay.StatusCapturable {
		action := e.policy.Decide(p)
		res.Capture = &action

		switch action {
		case CaptureNow:
			if err := e.gateway.Capture(ctx, p.ProcessorID); err != nil {
				return res, fmt.Errorf("ошибка capture платежа: %w", err)
			}
			log.Info().Str("processor_id", p.ProcessorID).Msg("Платёж списан (capture), повторно запрашиваем шлюз")

			// успешный capture ещё не означает списание: его подтверждает
			// success с датой списания в новом снапшоте
			gw, err = e.fetch(ctx, p)
			if errors.Is(err, remote.ErrMalformedResponse) {
				return e.notDecidable(ctx, res, err), nil
			}
			if err != nil {
				return res, err
			}
		default:
			log.Debug().Str("action", action.String()).Msg("Capture отложен политикой проверки")
		}
	}

	events := func(ctx context.Context) ([]govpay.Event, error) {
		return e.gateway.FetchEvents(ctx, p.ProcessorID)
	}
	decision, err := Classify(ctx, p, gw, events, e.now())
	if errors.Is(err, remote.ErrMalformedResponse) {
		return e.notDecidable(ctx, res, err), nil
	}
	if err != nil {
		return res, err
	}
	res.Decision = decision

	if !decision.Kind.IsTerminal() {
		log.Debug().
			Str("decision", decision.Kind.String()).
			Str("gateway_status", string(decision.GatewayStatus)).
			Msg("Платёж ещё не готов к переводу")
		return res, nil
	}

	if err := e.apply(ctx, p, decision); err != nil {
		return res, err
	}

	res.Notified = e.notify(ctx, p, decision)
	return res, nil
}

// notDecidable — ответ шлюза не разобран: платёж остаётся pending, как при
// ожидании даты списания, и повторяется в следующем проходе.
func (e *Engine) notDecidable(ctx context.Context, res Result, err error) Result {
	logger.Ctx(ctx).Debug().Err(err).Msg("Ответ шлюза не разобран, решение отложено")
	res.Decision = Decision{Kind: KindAwaitSettlement}
	return res
}

// fetch возвращает снапшот шлюза; nil — шлюз не знает платёж.
func (e *Engine) fetch(ctx context.Context, p *domain.Payment) (*govpay.Payment, error) {
	if p.ProcessorID == "" {
		return nil, nil
	}

	gw, err := e.gateway.Fetch(ctx, p.ProcessorID)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения платежа из шлюза: %w", err)
	}
	return gw, nil
}

// apply отправляет патчи решения в порядке Decision.Updates.
func (e *Engine) apply(ctx context.Context, p *domain.Payment, d Decision) error {
	for _, update := range d.Updates(p) {
		if err := e.store.Patch(ctx, p.Reference, update); err != nil {
			return fmt.Errorf("ошибка обновления платежа: %w", err)
		}
	}

	status, _ := d.Status()
	logger.Ctx(ctx).Info().
		Str("status", string(status)).
		Str("decision", d.Kind.String()).
		Msg("Статус платежа обновлён")
	return nil
}

// notify отправляет письмо, если решение его предполагает и адрес известен.
// Ошибка отправки логируется: статус уже записан, откатывать его нельзя.
func (e *Engine) notify(ctx context.Context, p *domain.Payment, d Decision) bool {
	kind, ok := d.Notification(p)
	if !ok || p.Status != domain.PaymentStatusPending {
		return false
	}

	recipient := d.Recipient(p)
	if recipient == "" {
		return false
	}

	sent, err := e.notifier.Send(ctx, domain.NewNotification(p, recipient, kind))
	if err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("kind", string(kind)).
			Msg("Ошибка отправки уведомления плательщику")
		return false
	}
	return sent
}
