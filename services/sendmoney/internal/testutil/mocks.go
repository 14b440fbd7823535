// Package testutil содержит общие моки send-money для unit-тестов.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
	"example.com/send-money/services/sendmoney/internal/paymentapi"
)

// =============================================================================
// MockGateway — мок клиента платёжного шлюза
// =============================================================================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Create(ctx context.Context, req govpay.CreateRequest) (*govpay.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*govpay.Payment), args.Error(1)
}

func (m *MockGateway) Fetch(ctx context.Context, processorID string) (*govpay.Payment, error) {
	args := m.Called(ctx, processorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*govpay.Payment), args.Error(1)
}

func (m *MockGateway) FetchEvents(ctx context.Context, processorID string) ([]govpay.Event, error) {
	args := m.Called(ctx, processorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]govpay.Event), args.Error(1)
}

func (m *MockGateway) Capture(ctx context.Context, processorID string) error {
	return m.Called(ctx, processorID).Error(0)
}

// =============================================================================
// MockStore — мок клиента внутреннего API платежей
// =============================================================================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListPending(ctx context.Context, modifiedBefore time.Time) ([]*domain.Payment, error) {
	args := m.Called(ctx, modifiedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, reference string) (*domain.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, p paymentapi.NewPayment) (*domain.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockStore) Patch(ctx context.Context, reference string, update domain.PaymentUpdate) error {
	return m.Called(ctx, reference, update).Error(0)
}

// =============================================================================
// MockNotifier — мок отправки уведомлений
// =============================================================================

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n domain.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

// =============================================================================
// Фабрики тестовых данных
// =============================================================================

// PendingPayment возвращает pending платёж с processor id.
func PendingPayment(reference, processorID string) *domain.Payment {
	return &domain.Payment{
		Reference:      reference,
		ProcessorID:    processorID,
		Status:         domain.PaymentStatusPending,
		Amount:         1700,
		ServiceCharge:  41,
		RecipientName:  "John",
		PrisonerNumber: "A1409AE",
		PrisonerDOB:    time.Date(1989, 1, 21, 0, 0, 0, 0, time.UTC),
	}
}

// GatewayPayment возвращает снапшот шлюза с заданным статусом.
func GatewayPayment(processorID string, status govpay.Status) *govpay.Payment {
	return &govpay.Payment{
		ID:    processorID,
		State: govpay.State{Status: status, Finished: status != govpay.StatusCreated},
	}
}

// Ptr возвращает указатель на значение.
func Ptr[T any](v T) *T {
	return &v
}
