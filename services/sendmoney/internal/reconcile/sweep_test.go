package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
	"example.com/send-money/services/sendmoney/internal/remote"
	"example.com/send-money/services/sendmoney/internal/testutil"
)

type gateFunc func() bool

func (f gateFunc) IsPrimaryInstance(context.Context) bool { return f() }

func primary() bool   { return true }
func secondary() bool { return false }

func TestSweeper_Run_SkipsOnSecondaryInstance(t *testing.T) {
	e, deps := newTestEngine(CapturePolicy{})
	s := NewSweeper(e, deps.store, gateFunc(secondary), 0)

	report, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Skipped)
	deps.store.AssertNotCalled(t, "ListPending", mock.Anything, mock.Anything)
}

func TestSweeper_Run_ListsWithIncompleteDelay(t *testing.T) {
	e, deps := newTestEngine(CapturePolicy{})
	s := NewSweeper(e, deps.store, gateFunc(primary), 0)
	s.now = func() time.Time { return engineNow }

	deps.store.On("ListPending", mock.Anything, engineNow.Add(-30*time.Minute)).Return([]*domain.Payment{}, nil).Once()

	report, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Total)
	deps.assertExpectations(t)
}

func TestSweeper_Run_ListError(t *testing.T) {
	e, deps := newTestEngine(CapturePolicy{})
	s := NewSweeper(e, deps.store, gateFunc(primary), time.Minute)

	deps.store.On("ListPending", mock.Anything, mock.Anything).Return(nil, remote.ErrTimeout).Once()

	_, err := s.Run(context.Background())

	assert.ErrorIs(t, err, remote.ErrTimeout)
}

func TestSweeper_Run_IsolatesFailures(t *testing.T) {
	e, deps := newTestEngine(CapturePolicy{})
	s := NewSweeper(e, deps.store, gateFunc(primary), time.Minute)

	payments := []*domain.Payment{
		testutil.PendingPayment("aaaa-1", "gov-1"), // таймаут шлюза
		testutil.PendingPayment("bbbb-2", "gov-2"), // ошибка аутентификации
		testutil.PendingPayment("cccc-3", "gov-3"), // 500 с телом
		testutil.PendingPayment("dddd-4", "gov-4"), // ещё вводит карту
		testutil.PendingPayment("eeee-5", "gov-5"), // отменён
		testutil.PendingPayment("ffff-6", "gov-6"), // шлюз не знает
	}
	deps.store.On("ListPending", mock.Anything, mock.Anything).Return(payments, nil).Once()

	cancelled := testutil.GatewayPayment("gov-5", govpay.StatusCancelled)
	cancelled.Email = "sender@outside.local"

	deps.gateway.On("Fetch", mock.Anything, "gov-1").Return(nil, remote.ErrTimeout)
	deps.gateway.On("Fetch", mock.Anything, "gov-2").Return(nil, remote.ErrAuthentication)
	deps.gateway.On("Fetch", mock.Anything, "gov-3").Return(nil, &remote.HTTPError{Status: 500, Body: "oops"})
	deps.gateway.On("Fetch", mock.Anything, "gov-4").Return(testutil.GatewayPayment("gov-4", govpay.StatusStarted), nil)
	deps.gateway.On("Fetch", mock.Anything, "gov-5").Return(cancelled, nil)
	deps.gateway.On("Fetch", mock.Anything, "gov-6").Return(nil, remote.ErrNotFound)

	deps.store.On("Patch", mock.Anything, "eeee-5", mock.MatchedBy(isStatus(domain.PaymentStatusRejected))).Return(nil).Once()
	deps.store.On("Patch", mock.Anything, "ffff-6", domain.StatusUpdate(domain.PaymentStatusFailed)).Return(nil).Once()
	deps.notifier.On("Send", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Reference == "eeee-5" && n.Kind == domain.NotificationRejected
	})).Return(true, nil).Once()

	report, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 3, report.Errors)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, map[string]int{"ignore": 1, "rejected": 1, "not_found": 1}, report.Outcomes)
	deps.assertExpectations(t)
}

func TestSweeper_Run_MalformedResponseIsNotAnError(t *testing.T) {
	e, deps := newTestEngine(CapturePolicy{})
	s := NewSweeper(e, deps.store, gateFunc(primary), time.Minute)

	deps.store.On("ListPending", mock.Anything, mock.Anything).
		Return([]*domain.Payment{testutil.PendingPayment("aaaa-1", "gov-1")}, nil).Once()
	deps.gateway.On("Fetch", mock.Anything, "gov-1").
		Return(nil, fmt.Errorf("%w: GET /payments/gov-1", remote.ErrMalformedResponse)).Once()

	report, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Errors)
	assert.Equal(t, map[string]int{"await_settlement": 1}, report.Outcomes)
	deps.assertExpectations(t)
}

// panicGateway паникует на одном processor id.
type panicGateway struct {
	*testutil.MockGateway
	panicOn string
}

func (g panicGateway) Fetch(ctx context.Context, processorID string) (*govpay.Payment, error) {
	if processorID == g.panicOn {
		panic("nil map")
	}
	return g.MockGateway.Fetch(ctx, processorID)
}

func TestSweeper_Run_RecoversFromPanic(t *testing.T) {
	gateway := panicGateway{MockGateway: new(testutil.MockGateway), panicOn: "gov-1"}
	store := new(testutil.MockStore)
	notifier := new(testutil.MockNotifier)
	s := NewSweeper(NewEngine(gateway, store, notifier, CapturePolicy{}), store, gateFunc(primary), time.Minute)

	store.On("ListPending", mock.Anything, mock.Anything).Return([]*domain.Payment{
		testutil.PendingPayment("aaaa-1", "gov-1"),
		testutil.PendingPayment("bbbb-2", "gov-2"),
	}, nil).Once()
	gateway.MockGateway.On("Fetch", mock.Anything, "gov-2").Return(testutil.GatewayPayment("gov-2", govpay.StatusSubmitted), nil).Once()

	report, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Outcomes["ignore"])
	gateway.MockGateway.AssertExpectations(t)
}

func TestSweeper_Run_StopsOnCancelledContext(t *testing.T) {
	e, deps := newTestEngine(CapturePolicy{})
	s := NewSweeper(e, deps.store, gateFunc(primary), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	deps.store.On("ListPending", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]*domain.Payment{testutil.PendingPayment("aaaa-1", "gov-1")}, nil).Once()

	report, err := s.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	deps.gateway.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestWorker_RunsImmediatelyAndStops(t *testing.T) {
	e, deps := newTestEngine(CapturePolicy{})
	s := NewSweeper(e, deps.store, gateFunc(primary), time.Minute)

	ran := make(chan struct{}, 1)
	deps.store.On("ListPending", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		}).
		Return(nil, errors.New("api недоступен"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(s, time.Hour).Run(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("проход не запустился сразу")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker не остановился")
	}
}
