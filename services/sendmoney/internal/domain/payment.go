// Package domain содержит бизнес-сущности send-money: платёж, проверку
// безопасности, патч платежа и уведомления плательщику.
package domain

import (
	"strings"
	"time"
)

// PaymentStatus — статус платежа во внутреннем API платежей.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж создан, итог на стороне шлюза ещё не известен.
	PaymentStatusPending PaymentStatus = "pending"

	// PaymentStatusTaken — деньги списаны, settlement подтверждён.
	PaymentStatusTaken PaymentStatus = "taken"

	// PaymentStatusRejected — плательщик отменил платёж или он отклонён проверкой.
	PaymentStatusRejected PaymentStatus = "rejected"

	// PaymentStatusFailed — шлюз не смог провести платёж.
	PaymentStatusFailed PaymentStatus = "failed"

	// PaymentStatusExpired — окно capture истекло.
	PaymentStatusExpired PaymentStatus = "expired"
)

// allowedTransitions — допустимые переходы. Все статусы кроме pending терминальные.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {
		PaymentStatusTaken,
		PaymentStatusRejected,
		PaymentStatusFailed,
		PaymentStatusExpired,
	},
}

// IsTerminal возвращает true для конечных статусов.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusTaken, PaymentStatusRejected, PaymentStatusFailed, PaymentStatusExpired:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус входит в закрытый набор.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s.IsTerminal()
}

// CanTransitionTo проверяет допустимость перехода.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SecurityCheckStatus — вердикт внешней подсистемы проверки платежей.
type SecurityCheckStatus string

const (
	SecurityCheckAccepted SecurityCheckStatus = "accepted"
	SecurityCheckRejected SecurityCheckStatus = "rejected"
	SecurityCheckPending  SecurityCheckStatus = "pending"
)

// ParseSecurityCheckStatus разбирает вердикт. Неизвестное значение
// трактуется как pending: платёж удерживается до явного решения.
func ParseSecurityCheckStatus(s string) SecurityCheckStatus {
	switch SecurityCheckStatus(strings.ToLower(s)) {
	case SecurityCheckAccepted:
		return SecurityCheckAccepted
	case SecurityCheckRejected:
		return SecurityCheckRejected
	default:
		return SecurityCheckPending
	}
}

// SecurityCheck — результат проверки платежа, устанавливается внешней подсистемой.
type SecurityCheck struct {
	Status SecurityCheckStatus

	// UserActioned — решение принято сотрудником вручную, а не автоматически.
	UserActioned bool
}

// BillingAddress — адрес плательщика из данных карты.
type BillingAddress struct {
	Line1    string
	Line2    string
	City     string
	Postcode string
	Country  string
}

// CardDetails — данные карты, которые шлюз отдаёт после авторизации.
// В платёж записываются один раз.
type CardDetails struct {
	CardholderName string
	CardBrand      string
	FirstDigits    string
	LastDigits     string
	ExpiryDate     string
	BillingAddress *BillingAddress
}

// IsEmpty возвращает true, если шлюз не вернул ни одного поля карты.
func (c *CardDetails) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.CardholderName == "" && c.CardBrand == "" && c.FirstDigits == "" &&
		c.LastDigits == "" && c.ExpiryDate == "" && c.BillingAddress == nil
}

// Payment — платёж заключённому, принадлежит внутреннему API платежей.
type Payment struct {
	Reference      string // uuid платежа
	ProcessorID    string // id платежа в шлюзе, пустой до создания в шлюзе
	Status         PaymentStatus
	Amount         int64 // в пенсах, без сервисного сбора
	ServiceCharge  int64 // в пенсах
	RecipientName  string
	PrisonerNumber string
	PrisonerDOB    time.Time

	Email      *string
	Card       *CardDetails
	ProviderID *string // id платежа у эквайера (worldpay_id)
	ReceivedAt *time.Time
	Security   *SecurityCheck
	ModifiedAt time.Time
}

// ShortReference возвращает пользовательскую короткую ссылку на платёж.
func (p *Payment) ShortReference() string {
	return ShortReference(p.Reference)
}

// ReviewRejected возвращает true, если проверка безопасности отклонила платёж.
func (p *Payment) ReviewRejected() bool {
	return p.Security != nil && p.Security.Status == SecurityCheckRejected
}

// AcceptedAfterReview возвращает true, если платёж одобрен сотрудником вручную.
func (p *Payment) AcceptedAfterReview() bool {
	return p.Security != nil && p.Security.Status == SecurityCheckAccepted && p.Security.UserActioned
}

// shortReferenceLength — длина короткой ссылки.
const shortReferenceLength = 8

// ShortReference — первые 8 символов ссылки в верхнем регистре.
// Пустая ссылка (платёж не создан) даёт пустую строку.
func ShortReference(reference string) string {
	if len(reference) > shortReferenceLength {
		reference = reference[:shortReferenceLength]
	}
	return strings.ToUpper(reference)
}
