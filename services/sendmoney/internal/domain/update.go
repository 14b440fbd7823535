package domain

import "time"

// PaymentUpdate — частичное обновление платежа. nil-поля не отправляются:
// внутренний API применяет патч как merge.
type PaymentUpdate struct {
	Status      *PaymentStatus
	ProcessorID *string
	Email       *string
	Card        *CardDetails
	ProviderID  *string
	ReceivedAt  *time.Time
}

// IsEmpty возвращает true, если в патче нет ни одного поля.
func (u PaymentUpdate) IsEmpty() bool {
	return u.Status == nil && u.ProcessorID == nil && u.Email == nil &&
		u.Card == nil && u.ProviderID == nil && u.ReceivedAt == nil
}

// StatusUpdate — патч только со статусом.
func StatusUpdate(status PaymentStatus) PaymentUpdate {
	return PaymentUpdate{Status: &status}
}

// WriteOnceUpdate собирает патч из одноразовых полей (email, карта, provider id),
// пропуская те, что у платежа уже заполнены. Поля карты проверяются по одному:
// шлюз может отдать их частями. Уже записанное значение никогда не перезаписывается.
func WriteOnceUpdate(p *Payment, email *string, card *CardDetails, providerID *string) PaymentUpdate {
	var u PaymentUpdate

	if p.Email == nil && email != nil && *email != "" {
		u.Email = email
	}
	if missing := missingCardFields(p.Card, card); !missing.IsEmpty() {
		u.Card = missing
	}
	if p.ProviderID == nil && providerID != nil && *providerID != "" {
		u.ProviderID = providerID
	}

	return u
}

// missingCardFields возвращает поля incoming, которых ещё нет в stored.
func missingCardFields(stored, incoming *CardDetails) *CardDetails {
	if incoming == nil {
		return nil
	}
	if stored == nil {
		return incoming
	}

	missing := &CardDetails{}
	if stored.CardholderName == "" {
		missing.CardholderName = incoming.CardholderName
	}
	if stored.CardBrand == "" {
		missing.CardBrand = incoming.CardBrand
	}
	if stored.FirstDigits == "" {
		missing.FirstDigits = incoming.FirstDigits
	}
	if stored.LastDigits == "" {
		missing.LastDigits = incoming.LastDigits
	}
	if stored.ExpiryDate == "" {
		missing.ExpiryDate = incoming.ExpiryDate
	}
	if stored.BillingAddress == nil {
		missing.BillingAddress = incoming.BillingAddress
	}
	return missing
}
