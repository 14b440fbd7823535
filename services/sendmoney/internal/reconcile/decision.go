package reconcile

import (
	"time"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/govpay"
)

// Kind — итог классификации снапшота шлюза.
type Kind int

const (
	// KindAwaitSettlement — шлюз сообщил success, но дата списания ещё не известна.
	KindAwaitSettlement Kind = iota

	// KindIgnore — платёж ещё в процессе (created / started / submitted / capturable).
	KindIgnore

	KindTaken
	KindRejected
	KindFailed

	// KindExpired — платёж был capturable, но списание не состоялось.
	KindExpired

	// KindNotFound — шлюз не знает processor id.
	KindNotFound
)

var kindNames = map[Kind]string{
	KindAwaitSettlement: "await_settlement",
	KindIgnore:          "ignore",
	KindTaken:           "taken",
	KindRejected:        "rejected",
	KindFailed:          "failed",
	KindExpired:         "expired",
	KindNotFound:        "not_found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal возвращает true, если итог переводит платёж в конечный статус.
func (k Kind) IsTerminal() bool {
	switch k {
	case KindTaken, KindRejected, KindFailed, KindExpired, KindNotFound:
		return true
	default:
		return false
	}
}

// Decision — решение о переходе платежа и данные для одноразовой записи.
type Decision struct {
	Kind          Kind
	GatewayStatus govpay.Status

	ReceivedAt time.Time           // только KindTaken
	Email      *string             // email плательщика из шлюза
	Card       *domain.CardDetails // только KindTaken
	ProviderID *string             // только KindTaken

	// ReviewRejected — для KindExpired: платёж отклонён проверкой безопасности,
	// плательщику уходит письмо об отклонении, а не об истечении.
	ReviewRejected bool
}

// Status возвращает статус, в который переводится платёж.
func (d Decision) Status() (domain.PaymentStatus, bool) {
	switch d.Kind {
	case KindTaken:
		return domain.PaymentStatusTaken, true
	case KindRejected:
		return domain.PaymentStatusRejected, true
	case KindFailed, KindNotFound:
		return domain.PaymentStatusFailed, true
	case KindExpired:
		return domain.PaymentStatusExpired, true
	default:
		return "", false
	}
}

// Updates возвращает патчи в порядке отправки.
//
// Для Taken сначала пишутся одноразовые поля (email, карта, provider id),
// затем статус с received_at. Для Rejected / Failed / Expired — один патч
// со статусом и email. NotFound — только статус failed.
// Уже заполненные у платежа одноразовые поля не перезаписываются.
func (d Decision) Updates(p *domain.Payment) []domain.PaymentUpdate {
	status, ok := d.Status()
	if !ok {
		return nil
	}

	switch d.Kind {
	case KindTaken:
		var updates []domain.PaymentUpdate
		if once := domain.WriteOnceUpdate(p, d.Email, d.Card, d.ProviderID); !once.IsEmpty() {
			updates = append(updates, once)
		}

		receivedAt := d.ReceivedAt
		final := domain.StatusUpdate(status)
		final.ReceivedAt = &receivedAt
		return append(updates, final)

	case KindNotFound:
		return []domain.PaymentUpdate{domain.StatusUpdate(status)}

	default:
		update := domain.WriteOnceUpdate(p, d.Email, nil, nil)
		update.Status = &status
		return []domain.PaymentUpdate{update}
	}
}

// Notification возвращает тип письма плательщику. false — письмо не отправляется.
func (d Decision) Notification(p *domain.Payment) (domain.NotificationKind, bool) {
	switch d.Kind {
	case KindTaken:
		if p.AcceptedAfterReview() {
			return domain.NotificationConfirmedAfterReview, true
		}
		return domain.NotificationConfirmed, true
	case KindRejected:
		return domain.NotificationRejected, true
	case KindExpired:
		if d.ReviewRejected {
			return domain.NotificationRejected, true
		}
		return domain.NotificationExpired, true
	default:
		return "", false
	}
}

// Recipient — адрес для письма: email из шлюза, иначе уже сохранённый у платежа.
func (d Decision) Recipient(p *domain.Payment) string {
	if d.Email != nil && *d.Email != "" {
		return *d.Email
	}
	if p.Email != nil {
		return *p.Email
	}
	return ""
}
