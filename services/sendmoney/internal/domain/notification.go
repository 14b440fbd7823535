package domain

import "github.com/shopspring/decimal"

// NotificationKind — тип письма плательщику.
type NotificationKind string

const (
	NotificationConfirmed            NotificationKind = "confirmed"
	NotificationConfirmedAfterReview NotificationKind = "confirmed-after-review"
	NotificationRejected             NotificationKind = "rejected"
	NotificationExpired              NotificationKind = "expired"
)

// NotificationContext — данные для шаблона письма.
type NotificationContext struct {
	ShortReference   string
	PrisonerName     string
	AmountMajorUnits decimal.Decimal // сумма перевода в фунтах, без сервисного сбора
}

// Notification — запрос на отправку письма плательщику.
type Notification struct {
	Reference string // полная ссылка платежа, ключ дедупликации
	Recipient string
	Kind      NotificationKind
	Context   NotificationContext
}

// NewNotification собирает уведомление по платежу.
func NewNotification(p *Payment, recipient string, kind NotificationKind) Notification {
	return Notification{
		Reference: p.Reference,
		Recipient: recipient,
		Kind:      kind,
		Context: NotificationContext{
			ShortReference:   p.ShortReference(),
			PrisonerName:     p.RecipientName,
			AmountMajorUnits: MajorUnits(p.Amount),
		},
	}
}
