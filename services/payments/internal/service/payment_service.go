// Package service содержит бизнес-логику API платежей.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/send-money/pkg/logger"
	"example.com/send-money/services/payments/internal/domain"
	"example.com/send-money/services/payments/internal/repository"
)

const (
	// DefaultLimit — размер страницы по умолчанию.
	DefaultLimit = 500

	// MaxLimit — наибольший размер страницы.
	MaxLimit = 1000
)

// CreatePaymentRequest — данные нового платежа.
type CreatePaymentRequest struct {
	Amount         int64
	ServiceCharge  int64
	RecipientName  string
	PrisonerNumber string
	PrisonerDOB    time.Time
}

// ListRequest — фильтр и страница списка.
type ListRequest struct {
	Status         *domain.PaymentStatus
	ModifiedBefore *time.Time
	Offset         int
	Limit          int
}

// ListResult — страница платежей и общее количество по фильтру.
type ListResult struct {
	Count    int64
	Payments []*domain.Payment
}

// PaymentService — интерфейс бизнес-логики платежей.
type PaymentService interface {
	// Create создаёт pending платёж.
	Create(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error)

	// Get возвращает платёж по ссылке.
	Get(ctx context.Context, uuid string) (*domain.Payment, error)

	// List возвращает страницу платежей.
	List(ctx context.Context, req ListRequest) (*ListResult, error)

	// Patch сливает частичное обновление с платежом (см. domain.Payment.Apply).
	Patch(ctx context.Context, uuid string, update domain.Update) (*domain.Payment, error)
}

// paymentService — реализация PaymentService.
type paymentService struct {
	repo repository.PaymentRepository
}

// NewPaymentService создаёт новый сервис платежей.
func NewPaymentService(repo repository.PaymentRepository) PaymentService {
	return &paymentService{repo: repo}
}

func (s *paymentService) Create(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	log := logger.Ctx(ctx)

	payment, err := domain.NewPayment(req.Amount, req.ServiceCharge, req.RecipientName, req.PrisonerNumber, req.PrisonerDOB)
	if err != nil {
		log.Warn().Err(err).Msg("Невалидные данные платежа")
		return nil, err
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		log.Error().Err(err).Msg("Ошибка создания платежа")
		return nil, fmt.Errorf("ошибка создания платежа: %w", err)
	}

	log.Info().
		Str("payment_ref", payment.UUID).
		Int64("amount", payment.Amount).
		Int64("service_charge", payment.ServiceCharge).
		Msg("Платёж создан")

	return payment, nil
}

func (s *paymentService) Get(ctx context.Context, uuid string) (*domain.Payment, error) {
	return s.repo.GetByUUID(ctx, uuid)
}

func (s *paymentService) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	if req.Status != nil && !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *req.Status)
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	payments, total, err := s.repo.List(ctx, repository.ListFilter{
		Status:         req.Status,
		ModifiedBefore: req.ModifiedBefore,
		Offset:         offset,
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка платежей: %w", err)
	}

	return &ListResult{Count: total, Payments: payments}, nil
}

func (s *paymentService) Patch(ctx context.Context, uuid string, update domain.Update) (*domain.Payment, error) {
	log := logger.Ctx(ctx).With().Str("payment_ref", uuid).Logger()

	var before domain.PaymentStatus
	var changed bool

	payment, err := s.repo.Update(ctx, uuid, func(p *domain.Payment) (bool, error) {
		before = p.Status
		var err error
		changed, err = p.Apply(update)
		return changed, err
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrFieldConflict):
			log.Warn().Err(err).Msg("Конфликт обновления платежа")
		case errors.Is(err, domain.ErrPaymentNotFound), errors.Is(err, domain.ErrInvalidStatus):
		default:
			log.Error().Err(err).Msg("Ошибка обновления платежа")
		}
		return nil, err
	}

	if changed {
		log.Info().
			Str("status_before", string(before)).
			Str("status", string(payment.Status)).
			Msg("Платёж обновлён")
	} else {
		log.Debug().Msg("Патч не изменил платёж")
	}

	return payment, nil
}
