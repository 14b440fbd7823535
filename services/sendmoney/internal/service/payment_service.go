// Package service содержит пользовательские сценарии send-money:
// создание платежа картой, проверку при возврате плательщика со страницы
// шлюза и реквизиты банковского перевода.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/send-money/pkg/logger"
	"example.com/send-money/pkg/metrics"
	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
	"example.com/send-money/services/sendmoney/internal/paymentapi"
	"example.com/send-money/services/sendmoney/internal/reconcile"
)

// SourceReturn — метка исходов проверки при возврате в метриках.
const SourceReturn = "return"

// =============================================================================
// Ошибки
// =============================================================================

// ErrFlowAborted — платёж уже в конечном статусе, сценарий прерывается
// (сессия плательщика очищается, результат повторно не показывается).
var ErrFlowAborted = errors.New("сценарий оплаты прерван: платёж уже обработан")

// FlowError — сбой сценария. Плательщику показывается только короткая
// ссылка; подробности остаются в логе.
type FlowError struct {
	ShortReference string // пустая, если платёж не успел создаться
	Err            error
}

func (e *FlowError) Error() string {
	if e.ShortReference == "" {
		return fmt.Sprintf("ошибка оплаты: %v", e.Err)
	}
	return fmt.Sprintf("ошибка оплаты платежа %s: %v", e.ShortReference, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Зависимости
// =============================================================================

// Gateway — создание платежа в шлюзе.
type Gateway interface {
	Create(ctx context.Context, req govpay.CreateRequest) (*govpay.Payment, error)
}

// Store — внутренний API платежей.
type Store interface {
	Create(ctx context.Context, p paymentapi.NewPayment) (*domain.Payment, error)
	Get(ctx context.Context, reference string) (*domain.Payment, error)
	Patch(ctx context.Context, reference string, update domain.PaymentUpdate) error
}

// Reconciler — сверка одного платежа (reconcile.Engine).
type Reconciler interface {
	Reconcile(ctx context.Context, p *domain.Payment) (reconcile.Result, error)
}

// Config — параметры оплаты картой.
type Config struct {
	SiteURL                 string
	ServiceChargePercentage decimal.Decimal
	ServiceChargeFixed      decimal.Decimal // в фунтах
	DelayedCaptureRollout   int             // 0–100
	BankAccountNumber       string
	BankSortCode            string
}

// =============================================================================
// PaymentService
// =============================================================================

// PaymentService — сценарии оплаты.
type PaymentService struct {
	gateway    Gateway
	store      Store
	reconciler Reconciler
	cfg        Config
}

// NewPaymentService создаёт сервис.
func NewPaymentService(gateway Gateway, store Store, reconciler Reconciler, cfg Config) *PaymentService {
	return &PaymentService{gateway: gateway, store: store, reconciler: reconciler, cfg: cfg}
}

// PaymentDetails — данные перевода, введённые плательщиком.
type PaymentDetails struct {
	Amount         int64 // в пенсах
	PrisonerName   string
	PrisonerNumber string
	PrisonerDOB    time.Time
}

// Quote — сумма перевода с сервисным сбором.
type Quote struct {
	Amount        int64
	ServiceCharge int64
	Total         int64
}

// Quote считает сервисный сбор для суммы в пенсах.
func (s *PaymentService) Quote(amount int64) Quote {
	charge := domain.ServiceCharge(amount, s.cfg.ServiceChargePercentage, s.cfg.ServiceChargeFixed)
	return Quote{Amount: amount, ServiceCharge: charge, Total: amount + charge}
}

// InitiateResult — созданный платёж и ссылка на страницу шлюза.
type InitiateResult struct {
	Reference      string
	ShortReference string
	ProcessorID    string
	NextURL        string
	Quote          Quote
}

// Initiate создаёт платёж во внутреннем API, затем в шлюзе.
// При сбое шлюза запись остаётся pending: шлюз — источник истины, и плановая
// сверка доведёт платёж до конечного статуса.
func (s *PaymentService) Initiate(ctx context.Context, d PaymentDetails) (*InitiateResult, error) {
	log := logger.Ctx(ctx)

	number, err := domain.NormalizePrisonerNumber(d.PrisonerNumber)
	if err != nil {
		return nil, err
	}
	if d.Amount < domain.MinimumAmount {
		return nil, domain.ErrInvalidAmount
	}

	quote := s.Quote(d.Amount)

	p, err := s.store.Create(ctx, paymentapi.NewPayment{
		Amount:         quote.Amount,
		ServiceCharge:  quote.ServiceCharge,
		RecipientName:  d.PrisonerName,
		PrisonerNumber: number,
		PrisonerDOB:    d.PrisonerDOB,
	})
	if err != nil {
		log.Error().Err(err).Str("prisoner_number", number).Msg("Ошибка создания платежа во внутреннем API")
		return nil, &FlowError{Err: err}
	}

	ctx = logger.WithPayment(ctx, p.Reference, p.ShortReference())
	log = logger.Ctx(ctx)

	delayed := delayedCapture(p.Reference, s.cfg.DelayedCaptureRollout)
	gw, err := s.gateway.Create(ctx, govpay.CreateRequest{
		Amount:         quote.Total,
		Reference:      p.Reference,
		Description:    "To this prisoner: " + number,
		ReturnURL:      s.returnURL(p.Reference),
		DelayedCapture: delayed,
	})
	if err != nil {
		log.Error().Err(err).Msg("Ошибка создания платежа в шлюзе")
		return nil, &FlowError{ShortReference: p.ShortReference(), Err: err}
	}

	if err := s.store.Patch(ctx, p.Reference, domain.PaymentUpdate{ProcessorID: &gw.ID}); err != nil {
		log.Error().Err(err).Str("processor_id", gw.ID).Msg("Ошибка сохранения идентификатора шлюза")
		return nil, &FlowError{ShortReference: p.ShortReference(), Err: err}
	}

	log.Info().
		Str("processor_id", gw.ID).
		Int64("amount", quote.Total).
		Bool("delayed_capture", delayed).
		Msg("Платёж создан, плательщик направлен в шлюз")

	return &InitiateResult{
		Reference:      p.Reference,
		ShortReference: p.ShortReference(),
		ProcessorID:    gw.ID,
		NextURL:        gw.NextURL(),
		Quote:          quote,
	}, nil
}

// ConfirmationResult — итог проверки при возврате плательщика.
type ConfirmationResult struct {
	Success        bool // платёж переведён в taken
	ShortReference string
	Outcome        string // решение сверки
	PrisonerName   string
	Amount         decimal.Decimal // в фунтах
}

// CheckOnReturn сверяет платёж сразу после возврата плательщика со страницы шлюза.
// ErrFlowAborted, если платёж уже не pending.
func (s *PaymentService) CheckOnReturn(ctx context.Context, reference string) (*ConfirmationResult, error) {
	shortRef := domain.ShortReference(reference)
	ctx = logger.WithPayment(ctx, reference, shortRef)
	log := logger.Ctx(ctx)

	p, err := s.store.Get(ctx, reference)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка получения платежа при возврате из шлюза")
		return nil, &FlowError{ShortReference: shortRef, Err: err}
	}

	if p.Status != domain.PaymentStatusPending {
		log.Info().Str("status", string(p.Status)).Msg("Платёж уже обработан, сценарий прерван")
		return nil, fmt.Errorf("%w: %w", ErrFlowAborted, domain.ErrPaymentNotPending)
	}

	res, err := s.reconciler.Reconcile(ctx, p)
	if err != nil {
		metrics.RecordOutcome(SourceReturn, "error")
		log.Error().Err(err).Msg("Ошибка проверки платежа при возврате из шлюза")
		return nil, &FlowError{ShortReference: p.ShortReference(), Err: err}
	}

	outcome := res.Decision.Kind.String()
	metrics.RecordOutcome(SourceReturn, outcome)

	return &ConfirmationResult{
		Success:        res.Decision.Kind == reconcile.KindTaken,
		ShortReference: p.ShortReference(),
		Outcome:        outcome,
		PrisonerName:   p.RecipientName,
		Amount:         domain.MajorUnits(p.Amount),
	}, nil
}

// BankTransfer — реквизиты банковского перевода.
type BankTransfer struct {
	Reference     string
	AccountNumber string
	SortCode      string
}

// BankTransferDetails возвращает реквизиты перевода для заключённого.
func (s *PaymentService) BankTransferDetails(prisonerNumber string, dob time.Time) (*BankTransfer, error) {
	number, err := domain.NormalizePrisonerNumber(prisonerNumber)
	if err != nil {
		return nil, err
	}
	return &BankTransfer{
		Reference:     domain.BankTransferReference(number, dob),
		AccountNumber: s.cfg.BankAccountNumber,
		SortCode:      s.cfg.BankSortCode,
	}, nil
}

func (s *PaymentService) returnURL(reference string) string {
	return strings.TrimRight(s.cfg.SiteURL, "/") + "/confirmation?payment_ref=" + url.QueryEscape(reference)
}

// delayedCapture решает, создавать ли платёж с отложенным capture.
// Решение стабильно для ссылки: доля percentage платежей по хешу.
func delayedCapture(reference string, percentage int) bool {
	switch {
	case percentage <= 0:
		return false
	case percentage >= 100:
		return true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(reference))
	return int(h.Sum32()%100) < percentage
}
