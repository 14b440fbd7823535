// Package govpay — клиент платёжного шлюза GOV.UK Pay: создание платежа,
// снапшот, история событий и capture отложенного платежа.
package govpay

import (
	"strings"

	"example.com/send-money/services/sendmoney/internal/domain"
)

// Status — статус платежа в шлюзе. Набор закрыт: всё прочее — StatusUnknown.
type Status string

const (
	StatusCreated    Status = "created"
	StatusStarted    Status = "started"
	StatusSubmitted  Status = "submitted"
	StatusCapturable Status = "capturable"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
	StatusUnknown    Status = "unknown"
)

// ParseStatus разбирает статус шлюза без учёта регистра.
func ParseStatus(s string) Status {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusCreated, StatusStarted, StatusSubmitted, StatusCapturable,
		StatusSuccess, StatusFailed, StatusCancelled, StatusError:
		return st
	default:
		return StatusUnknown
	}
}

// UnmarshalText позволяет декодировать статус прямо из JSON.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// State — состояние платежа в шлюзе.
type State struct {
	Status   Status `json:"status"`
	Finished bool   `json:"finished"`
	Code     string `json:"code,omitempty"` // например P0020 — истекла сессия
}

// Settlement — данные о списании. Поля появляются после capture.
type Settlement struct {
	CaptureSubmitTime string `json:"capture_submit_time,omitempty"` // RFC 3339
	CapturedDate      string `json:"captured_date,omitempty"`       // YYYY-MM-DD
}

// BillingAddress — адрес плательщика в формате шлюза.
type BillingAddress struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	Postcode string `json:"postcode"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

// CardDetails — данные карты в формате шлюза.
type CardDetails struct {
	CardBrand      string          `json:"card_brand"`
	LastDigits     string          `json:"last_digits_card_number"`
	FirstDigits    string          `json:"first_digits_card_number"`
	CardholderName string          `json:"cardholder_name"`
	ExpiryDate     string          `json:"expiry_date"`
	BillingAddress *BillingAddress `json:"billing_address"`
}

// ToDomain переводит данные карты в доменную модель. nil, если полей нет.
func (c *CardDetails) ToDomain() *domain.CardDetails {
	if c == nil {
		return nil
	}

	card := &domain.CardDetails{
		CardholderName: c.CardholderName,
		CardBrand:      c.CardBrand,
		FirstDigits:    c.FirstDigits,
		LastDigits:     c.LastDigits,
		ExpiryDate:     c.ExpiryDate,
	}
	if c.BillingAddress != nil {
		card.BillingAddress = &domain.BillingAddress{
			Line1:    c.BillingAddress.Line1,
			Line2:    c.BillingAddress.Line2,
			City:     c.BillingAddress.City,
			Postcode: c.BillingAddress.Postcode,
			Country:  c.BillingAddress.Country,
		}
	}

	if card.IsEmpty() {
		return nil
	}
	return card
}

type link struct {
	Href   string `json:"href"`
	Method string `json:"method"`
}

// Payment — снапшот платежа в шлюзе.
type Payment struct {
	ID         string       `json:"payment_id"`
	Reference  string       `json:"reference"`
	Amount     int64        `json:"amount"`
	State      State        `json:"state"`
	Settlement Settlement   `json:"settlement_summary"`
	Email      string       `json:"email,omitempty"`
	ProviderID string       `json:"provider_id,omitempty"`
	Card       *CardDetails `json:"card_details,omitempty"`

	Links map[string]link `json:"_links,omitempty"`
}

// NextURL возвращает ссылку, по которой плательщик вводит данные карты.
func (p *Payment) NextURL() string {
	return p.Links["next_url"].Href
}

// EmailPtr возвращает email плательщика или nil, если шлюз его не знает.
func (p *Payment) EmailPtr() *string {
	if p.Email == "" {
		return nil
	}
	email := p.Email
	return &email
}

// ProviderIDPtr возвращает id платежа у эквайера или nil.
func (p *Payment) ProviderIDPtr() *string {
	if p.ProviderID == "" {
		return nil
	}
	id := p.ProviderID
	return &id
}

// Event — запись истории состояний платежа.
type Event struct {
	State     State  `json:"state"`
	UpdatedAt string `json:"updated,omitempty"`
}

// CreateRequest — параметры создания платежа в шлюзе.
type CreateRequest struct {
	Amount         int64  `json:"amount"` // в пенсах, с сервисным сбором
	Reference      string `json:"reference"`
	Description    string `json:"description"`
	ReturnURL      string `json:"return_url"`
	DelayedCapture bool   `json:"delayed_capture,omitempty"`
}
