package reconcile

import (
	"context"
	"fmt"
	"time"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
)

// EventsFunc лениво загружает историю событий платежа в шлюзе.
type EventsFunc func(ctx context.Context) ([]govpay.Event, error)

// Classify переводит снапшот шлюза в решение по платежу.
// История событий запрашивается только для статуса failed.
// gw == nil означает, что шлюз не знает платёж.
func Classify(ctx context.Context, p *domain.Payment, gw *govpay.Payment, events EventsFunc, now time.Time) (Decision, error) {
	if gw == nil {
		return Decision{Kind: KindNotFound}, nil
	}

	d := Decision{GatewayStatus: gw.State.Status}

	switch gw.State.Status {
	case govpay.StatusCreated, govpay.StatusStarted, govpay.StatusSubmitted, govpay.StatusCapturable:
		d.Kind = KindIgnore

	case govpay.StatusSuccess:
		receivedAt, ok := ReceivedAt(ParseSubmitTime(gw.Settlement.CaptureSubmitTime), gw.Settlement.CapturedDate, now)
		if !ok {
			d.Kind = KindAwaitSettlement
			return d, nil
		}
		d.Kind = KindTaken
		d.ReceivedAt = receivedAt
		d.Email = gw.EmailPtr()
		d.Card = gw.Card.ToDomain()
		d.ProviderID = gw.ProviderIDPtr()

	case govpay.StatusCancelled:
		d.Kind = KindRejected
		d.Email = gw.EmailPtr()

	case govpay.StatusFailed:
		history, err := events(ctx)
		if err != nil {
			return Decision{}, fmt.Errorf("ошибка получения истории событий платежа: %w", err)
		}
		d.Email = gw.EmailPtr()
		if wasCapturable(history) {
			d.Kind = KindExpired
			d.ReviewRejected = p.ReviewRejected()
		} else {
			d.Kind = KindFailed
		}

	case govpay.StatusError:
		d.Kind = KindFailed
		d.Email = gw.EmailPtr()

	default:
		// неизвестный статус: решать нечего, ждём следующего прохода
		d.Kind = KindAwaitSettlement
	}

	return d, nil
}

func wasCapturable(events []govpay.Event) bool {
	for _, e := range events {
		if e.State.Status == govpay.StatusCapturable {
			return true
		}
	}
	return false
}
