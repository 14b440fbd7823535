package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
	"example.com/send-money/services/sendmoney/internal/paymentapi"
	"example.com/send-money/services/sendmoney/internal/reconcile"
	"example.com/send-money/services/sendmoney/internal/remote"
	"example.com/send-money/services/sendmoney/internal/testutil"
)

// fakeReconciler возвращает заданный результат и запоминает платёж.
type fakeReconciler struct {
	result reconcile.Result
	err    error
	called *domain.Payment
}

func (f *fakeReconciler) Reconcile(_ context.Context, p *domain.Payment) (reconcile.Result, error) {
	f.called = p
	return f.result, f.err
}

var testConfig = Config{
	SiteURL:                 "https://send-money.example/",
	ServiceChargePercentage: decimal.RequireFromString("2.4"),
	ServiceChargeFixed:      decimal.RequireFromString("0.20"),
	BankAccountNumber:       "12345678",
	BankSortCode:            "101010",
}

func newTestService(rec Reconciler) (*PaymentService, *testutil.MockGateway, *testutil.MockStore) {
	gateway := new(testutil.MockGateway)
	store := new(testutil.MockStore)
	if rec == nil {
		rec = &fakeReconciler{}
	}
	return NewPaymentService(gateway, store, rec, testConfig), gateway, store
}

func validDetails() PaymentDetails {
	return PaymentDetails{
		Amount:         1700,
		PrisonerName:   "John",
		PrisonerNumber: "a1409ae",
		PrisonerDOB:    time.Date(1989, 1, 21, 0, 0, 0, 0, time.UTC),
	}
}

// ==================== Initiate ====================

func TestInitiate_Success(t *testing.T) {
	s, gateway, store := newTestService(nil)
	ctx := context.Background()

	store.On("Create", mock.Anything, paymentapi.NewPayment{
		Amount:         1700,
		ServiceCharge:  61,
		RecipientName:  "John",
		PrisonerNumber: "A1409AE",
		PrisonerDOB:    time.Date(1989, 1, 21, 0, 0, 0, 0, time.UTC),
	}).Return(&domain.Payment{Reference: "wargle-blargle", Status: domain.PaymentStatusPending}, nil).Once()

	var gw *govpay.Payment
	require.NoError(t, json.Unmarshal([]byte(`{"payment_id":"gov-1","_links":{"next_url":{"href":"https://pay.example/secure","method":"GET"}}}`), &gw))
	gateway.On("Create", mock.Anything, govpay.CreateRequest{
		Amount:      1761,
		Reference:   "wargle-blargle",
		Description: "To this prisoner: A1409AE",
		ReturnURL:   "https://send-money.example/confirmation?payment_ref=wargle-blargle",
	}).Return(gw, nil).Once()

	store.On("Patch", mock.Anything, "wargle-blargle", mock.MatchedBy(func(u domain.PaymentUpdate) bool {
		return u.ProcessorID != nil && *u.ProcessorID == "gov-1" && u.Status == nil
	})).Return(nil).Once()

	res, err := s.Initiate(ctx, validDetails())

	require.NoError(t, err)
	assert.Equal(t, "WARGLE-B", res.ShortReference)
	assert.Equal(t, "https://pay.example/secure", res.NextURL)
	assert.Equal(t, Quote{Amount: 1700, ServiceCharge: 61, Total: 1761}, res.Quote)
	gateway.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestInitiate_Validation(t *testing.T) {
	s, _, store := newTestService(nil)

	d := validDetails()
	d.PrisonerNumber = "ABC"
	_, err := s.Initiate(context.Background(), d)
	assert.ErrorIs(t, err, domain.ErrInvalidPrisonerNumber)

	d = validDetails()
	d.Amount = 0
	_, err = s.Initiate(context.Background(), d)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiate_GatewayFailureKeepsPendingRow(t *testing.T) {
	s, gateway, store := newTestService(nil)

	store.On("Create", mock.Anything, mock.Anything).
		Return(&domain.Payment{Reference: "wargle-blargle", Status: domain.PaymentStatusPending}, nil).Once()
	gateway.On("Create", mock.Anything, mock.Anything).Return(nil, remote.ErrTimeout).Once()

	_, err := s.Initiate(context.Background(), validDetails())

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, "WARGLE-B", flowErr.ShortReference)
	assert.ErrorIs(t, err, remote.ErrTimeout)
	store.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiate_StoreFailureHasNoReference(t *testing.T) {
	s, gateway, store := newTestService(nil)

	store.On("Create", mock.Anything, mock.Anything).Return(nil, remote.ErrAuthentication).Once()

	_, err := s.Initiate(context.Background(), validDetails())

	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Empty(t, flowErr.ShortReference)
	gateway.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ==================== CheckOnReturn ====================

func TestCheckOnReturn(t *testing.T) {
	tests := []struct {
		name        string
		kind        reconcile.Kind
		wantSuccess bool
	}{
		{"taken: страница успеха", reconcile.KindTaken, true},
		{"ещё не списан", reconcile.KindAwaitSettlement, false},
		{"отменён плательщиком", reconcile.KindRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconciler{result: reconcile.Result{Decision: reconcile.Decision{Kind: tt.kind}}}
			s, _, store := newTestService(rec)

			p := testutil.PendingPayment("wargle-blargle", "gov-1")
			store.On("Get", mock.Anything, "wargle-blargle").Return(p, nil).Once()

			res, err := s.CheckOnReturn(context.Background(), "wargle-blargle")

			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, "WARGLE-B", res.ShortReference)
			assert.Equal(t, "17", res.Amount.String())
			assert.Same(t, p, rec.called)
		})
	}
}

func TestCheckOnReturn_AlreadyProcessedAborts(t *testing.T) {
	rec := &fakeReconciler{}
	s, _, store := newTestService(rec)

	p := testutil.PendingPayment("wargle-blargle", "gov-1")
	p.Status = domain.PaymentStatusTaken
	store.On("Get", mock.Anything, "wargle-blargle").Return(p, nil).Once()

	_, err := s.CheckOnReturn(context.Background(), "wargle-blargle")

	assert.ErrorIs(t, err, ErrFlowAborted)
	assert.Nil(t, rec.called, "сверка не выполняется")
}

func TestCheckOnReturn_ErrorsCarryShortReference(t *testing.T) {
	t.Run("платёж не найден", func(t *testing.T) {
		s, _, store := newTestService(nil)
		store.On("Get", mock.Anything, "wargle-blargle").Return(nil, domain.ErrPaymentNotFound).Once()

		_, err := s.CheckOnReturn(context.Background(), "wargle-blargle")

		var flowErr *FlowError
		require.ErrorAs(t, err, &flowErr)
		assert.Equal(t, "WARGLE-B", flowErr.ShortReference)
	})

	t.Run("ошибка шлюза", func(t *testing.T) {
		rec := &fakeReconciler{err: errors.New("шлюз недоступен")}
		s, _, store := newTestService(rec)
		store.On("Get", mock.Anything, "wargle-blargle").Return(testutil.PendingPayment("wargle-blargle", "gov-1"), nil).Once()

		_, err := s.CheckOnReturn(context.Background(), "wargle-blargle")

		var flowErr *FlowError
		require.ErrorAs(t, err, &flowErr)
		assert.Equal(t, "WARGLE-B", flowErr.ShortReference)
	})
}

// ==================== Прочее ====================

func TestBankTransferDetails(t *testing.T) {
	s, _, _ := newTestService(nil)

	bt, err := s.BankTransferDetails("a1409ae", time.Date(1989, 1, 21, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "A1409AE 21/01/1989", bt.Reference)
	assert.Equal(t, "12345678", bt.AccountNumber)

	_, err = s.BankTransferDetails("bad", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidPrisonerNumber)
}

func TestDelayedCapture(t *testing.T) {
	assert.False(t, delayedCapture("any", 0))
	assert.True(t, delayedCapture("any", 100))
	assert.Equal(t, delayedCapture("wargle-blargle", 50), delayedCapture("wargle-blargle", 50), "решение стабильно")

	delayed := 0
	for i := 0; i < 1000; i++ {
		if delayedCapture(time.Unix(int64(i), 0).String(), 25) {
			delayed++
		}
	}
	assert.InDelta(t, 250, delayed, 100)
}
