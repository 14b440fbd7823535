package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
	"example.com/send-money/services/sendmoney/internal/testutil"
)

var classifyNow = time.Date(2016, 10, 28, 12, 45, 22, 0, time.UTC)

// eventsOf возвращает EventsFunc с фиксированной историей и счётчиком вызовов.
func eventsOf(calls *int, statuses ...govpay.Status) EventsFunc {
	return func(context.Context) ([]govpay.Event, error) {
		*calls++
		events := make([]govpay.Event, len(statuses))
		for i, s := range statuses {
			events[i] = govpay.Event{State: govpay.State{Status: s}}
		}
		return events, nil
	}
}

func TestClassify_InProgressIsIgnored(t *testing.T) {
	p := testutil.PendingPayment("wargle-1111", "gov-1")

	for _, status := range []govpay.Status{govpay.StatusCreated, govpay.StatusStarted, govpay.StatusSubmitted, govpay.StatusCapturable} {
		t.Run(string(status), func(t *testing.T) {
			calls := 0
			d, err := Classify(context.Background(), p, testutil.GatewayPayment("gov-1", status), eventsOf(&calls), classifyNow)

			require.NoError(t, err)
			assert.Equal(t, KindIgnore, d.Kind)
			assert.Nil(t, d.Updates(p))
			assert.Zero(t, calls, "история событий не запрашивается")
		})
	}
}

func TestClassify_Success(t *testing.T) {
	p := testutil.PendingPayment("wargle-1111", "gov-1")

	t.Run("без даты списания — ждём", func(t *testing.T) {
		gw := testutil.GatewayPayment("gov-1", govpay.StatusSuccess)
		gw.Email = "sender@outside.local"

		calls := 0
		d, err := Classify(context.Background(), p, gw, eventsOf(&calls), classifyNow)

		require.NoError(t, err)
		assert.Equal(t, KindAwaitSettlement, d.Kind)
		assert.Nil(t, d.Updates(p), "нет записи в хранилище")
		_, notify := d.Notification(p)
		assert.False(t, notify, "нет письма")
		assert.Zero(t, calls)
	})

	t.Run("с датой списания — taken", func(t *testing.T) {
		gw := testutil.GatewayPayment("gov-1", govpay.StatusSuccess)
		gw.Email = "sender@outside.local"
		gw.ProviderID = "111111"
		gw.Settlement = govpay.Settlement{CaptureSubmitTime: "2016-10-28T14:57:05Z", CapturedDate: "2016-10-28"}
		gw.Card = &govpay.CardDetails{CardBrand: "Visa", LastDigits: "1234"}

		d, err := Classify(context.Background(), p, gw, nil, classifyNow)

		require.NoError(t, err)
		assert.Equal(t, KindTaken, d.Kind)
		assert.Equal(t, time.Date(2016, 10, 28, 14, 57, 5, 0, time.UTC), d.ReceivedAt)
		assert.Equal(t, "sender@outside.local", *d.Email)
		assert.Equal(t, "111111", *d.ProviderID)
		assert.Equal(t, "Visa", d.Card.CardBrand)
	})
}

func TestClassify_Cancelled(t *testing.T) {
	p := testutil.PendingPayment("wargle-1111", "gov-1")
	gw := testutil.GatewayPayment("gov-1", govpay.StatusCancelled)
	gw.Email = "sender@outside.local"

	d, err := Classify(context.Background(), p, gw, nil, classifyNow)

	require.NoError(t, err)
	assert.Equal(t, KindRejected, d.Kind)
	kind, ok := d.Notification(p)
	assert.True(t, ok)
	assert.Equal(t, domain.NotificationRejected, kind)
}

func TestClassify_FailedUsesEventHistory(t *testing.T) {
	tests := []struct {
		name     string
		history  []govpay.Status
		security *domain.SecurityCheck
		wantKind Kind
		wantMail domain.NotificationKind
	}{
		{
			name:     "никогда не был capturable — failed",
			history:  []govpay.Status{govpay.StatusCreated, govpay.StatusStarted, govpay.StatusFailed},
			wantKind: KindFailed,
		},
		{
			name:     "был capturable — expired",
			history:  []govpay.Status{govpay.StatusCreated, govpay.StatusCapturable, govpay.StatusFailed},
			wantKind: KindExpired,
			wantMail: domain.NotificationExpired,
		},
		{
			name:     "был capturable и отклонён проверкой — письмо об отклонении",
			history:  []govpay.Status{govpay.StatusCapturable, govpay.StatusFailed},
			security: &domain.SecurityCheck{Status: domain.SecurityCheckRejected},
			wantKind: KindExpired,
			wantMail: domain.NotificationRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.PendingPayment("wargle-1111", "gov-1")
			p.Security = tt.security
			gw := testutil.GatewayPayment("gov-1", govpay.StatusFailed)
			gw.Email = "sender@outside.local"

			calls := 0
			d, err := Classify(context.Background(), p, gw, eventsOf(&calls, tt.history...), classifyNow)

			require.NoError(t, err)
			assert.Equal(t, 1, calls)
			assert.Equal(t, tt.wantKind, d.Kind)

			kind, ok := d.Notification(p)
			if tt.wantMail == "" {
				assert.False(t, ok, "failed — без письма")
			} else {
				assert.True(t, ok)
				assert.Equal(t, tt.wantMail, kind)
			}
		})
	}
}

func TestClassify_FailedEventsError(t *testing.T) {
	p := testutil.PendingPayment("wargle-1111", "gov-1")
	gw := testutil.GatewayPayment("gov-1", govpay.StatusFailed)
	boom := errors.New("шлюз недоступен")

	_, err := Classify(context.Background(), p, gw, func(context.Context) ([]govpay.Event, error) { return nil, boom }, classifyNow)

	assert.ErrorIs(t, err, boom)
}

func TestClassify_OtherStatuses(t *testing.T) {
	p := testutil.PendingPayment("wargle-1111", "gov-1")

	d, err := Classify(context.Background(), p, testutil.GatewayPayment("gov-1", govpay.StatusError), nil, classifyNow)
	require.NoError(t, err)
	assert.Equal(t, KindFailed, d.Kind)

	d, err = Classify(context.Background(), p, testutil.GatewayPayment("gov-1", govpay.StatusUnknown), nil, classifyNow)
	require.NoError(t, err)
	assert.Equal(t, KindAwaitSettlement, d.Kind)

	d, err = Classify(context.Background(), p, nil, nil, classifyNow)
	require.NoError(t, err)
	assert.Equal(t, KindNotFound, d.Kind)
}

func TestDecision_Updates(t *testing.T) {
	receivedAt := time.Date(2016, 10, 28, 14, 57, 5, 0, time.UTC)
	email := "sender@outside.local"
	card := &domain.CardDetails{CardBrand: "Visa"}

	t.Run("taken: сначала одноразовые поля, затем статус", func(t *testing.T) {
		p := testutil.PendingPayment("ref", "gov-1")
		d := Decision{Kind: KindTaken, ReceivedAt: receivedAt, Email: &email, Card: card}

		updates := d.Updates(p)

		require.Len(t, updates, 2)
		assert.Equal(t, &email, updates[0].Email)
		assert.Equal(t, card, updates[0].Card)
		assert.Nil(t, updates[0].Status)
		assert.Equal(t, domain.PaymentStatusTaken, *updates[1].Status)
		assert.Equal(t, receivedAt, *updates[1].ReceivedAt)
	})

	t.Run("taken: уже записанные поля не перезаписываются", func(t *testing.T) {
		p := testutil.PendingPayment("ref", "gov-1")
		p.Email = testutil.Ptr("first@outside.local")
		p.Card = &domain.CardDetails{CardBrand: "Mastercard"}
		d := Decision{Kind: KindTaken, ReceivedAt: receivedAt, Email: &email, Card: card}

		updates := d.Updates(p)

		require.Len(t, updates, 1, "только статус")
		assert.Nil(t, updates[0].Email)
		assert.Nil(t, updates[0].Card)
	})

	t.Run("failed: один патч со статусом и email", func(t *testing.T) {
		p := testutil.PendingPayment("ref", "gov-1")
		updates := Decision{Kind: KindFailed, Email: &email}.Updates(p)

		require.Len(t, updates, 1)
		assert.Equal(t, domain.PaymentStatusFailed, *updates[0].Status)
		assert.Equal(t, &email, updates[0].Email)
		assert.Nil(t, updates[0].ReceivedAt)
	})

	t.Run("not found: только статус failed", func(t *testing.T) {
		p := testutil.PendingPayment("ref", "gov-1")
		updates := Decision{Kind: KindNotFound}.Updates(p)

		require.Len(t, updates, 1)
		assert.Equal(t, domain.StatusUpdate(domain.PaymentStatusFailed), updates[0])
	})
}

func TestDecision_Notification_ConfirmedAfterReview(t *testing.T) {
	p := testutil.PendingPayment("ref", "gov-1")
	d := Decision{Kind: KindTaken}

	kind, _ := d.Notification(p)
	assert.Equal(t, domain.NotificationConfirmed, kind)

	p.Security = &domain.SecurityCheck{Status: domain.SecurityCheckAccepted, UserActioned: true}
	kind, _ = d.Notification(p)
	assert.Equal(t, domain.NotificationConfirmedAfterReview, kind)

	p.Security.UserActioned = false
	kind, _ = d.Notification(p)
	assert.Equal(t, domain.NotificationConfirmed, kind, "автоматическое одобрение — обычное письмо")
}

func TestCapturePolicy_Decide(t *testing.T) {
	tests := []struct {
		name     string
		security *domain.SecurityCheck
		required bool
		want     CaptureAction
	}{
		{"проверки нет, не обязательна", nil, false, CaptureNow},
		{"проверки нет, обязательна", nil, true, CaptureDefer},
		{"accepted", &domain.SecurityCheck{Status: domain.SecurityCheckAccepted}, true, CaptureNow},
		{"pending", &domain.SecurityCheck{Status: domain.SecurityCheckPending}, false, CaptureDefer},
		{"rejected", &domain.SecurityCheck{Status: domain.SecurityCheckRejected}, false, CaptureReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.PendingPayment("ref", "gov-1")
			p.Security = tt.security

			assert.Equal(t, tt.want, CapturePolicy{SecurityCheckRequired: tt.required}.Decide(p))
		})
	}
}
