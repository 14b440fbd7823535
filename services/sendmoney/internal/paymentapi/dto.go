package paymentapi

import (
	"time"

	"example.com/send-money/services/sendmoney/internal/domain"
)

// dateLayout — формат даты рождения в API.
const dateLayout = "2006-01-02"

type billingAddressDTO struct {
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
}

type securityCheckDTO struct {
	Status       string `json:"status"`
	UserActioned bool   `json:"user_actioned"`
}

// paymentDTO — платёж в формате внутреннего API.
type paymentDTO struct {
	UUID           string            `json:"uuid"`
	ProcessorID    *string           `json:"processor_id"`
	RecipientName  string            `json:"recipient_name"`
	Amount         int64             `json:"amount"`
	ServiceCharge  int64             `json:"service_charge"`
	Status         string            `json:"status"`
	PrisonerNumber string            `json:"prisoner_number"`
	PrisonerDOB    string            `json:"prisoner_dob"`
	Email          *string           `json:"email"`
	ReceivedAt     *time.Time        `json:"received_at"`
	Modified       time.Time         `json:"modified"`
	SecurityCheck  *securityCheckDTO `json:"security_check"`

	CardholderName string             `json:"cardholder_name"`
	CardBrand      string             `json:"card_brand"`
	WorldpayID     *string            `json:"worldpay_id"`
	FirstDigits    string             `json:"card_number_first_digits"`
	LastDigits     string             `json:"card_number_last_digits"`
	ExpiryDate     string             `json:"card_expiry_date"`
	BillingAddress *billingAddressDTO `json:"billing_address"`
}

func (d *paymentDTO) toDomain() *domain.Payment {
	p := &domain.Payment{
		Reference:      d.UUID,
		Status:         domain.PaymentStatus(d.Status),
		Amount:         d.Amount,
		ServiceCharge:  d.ServiceCharge,
		RecipientName:  d.RecipientName,
		PrisonerNumber: d.PrisonerNumber,
		Email:          nonEmpty(d.Email),
		ProviderID:     nonEmpty(d.WorldpayID),
		ReceivedAt:     d.ReceivedAt,
		ModifiedAt:     d.Modified,
	}
	if d.ProcessorID != nil {
		p.ProcessorID = *d.ProcessorID
	}
	if dob, err := time.Parse(dateLayout, d.PrisonerDOB); err == nil {
		p.PrisonerDOB = dob
	}
	if d.SecurityCheck != nil {
		p.Security = &domain.SecurityCheck{
			Status:       domain.ParseSecurityCheckStatus(d.SecurityCheck.Status),
			UserActioned: d.SecurityCheck.UserActioned,
		}
	}

	card := &domain.CardDetails{
		CardholderName: d.CardholderName,
		CardBrand:      d.CardBrand,
		FirstDigits:    d.FirstDigits,
		LastDigits:     d.LastDigits,
		ExpiryDate:     d.ExpiryDate,
	}
	if d.BillingAddress != nil {
		card.BillingAddress = &domain.BillingAddress{
			Line1:    d.BillingAddress.Line1,
			Line2:    d.BillingAddress.Line2,
			City:     d.BillingAddress.City,
			Postcode: d.BillingAddress.Postcode,
			Country:  d.BillingAddress.Country,
		}
	}
	if !card.IsEmpty() {
		p.Card = card
	}

	return p
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// listResponse — страница списка платежей.
type listResponse struct {
	Count   int          `json:"count"`
	Results []paymentDTO `json:"results"`
}

// NewPayment — данные для создания платежа.
type NewPayment struct {
	Amount         int64
	ServiceCharge  int64
	RecipientName  string
	PrisonerNumber string
	PrisonerDOB    time.Time
}

type createRequest struct {
	Amount         int64  `json:"amount"`
	ServiceCharge  int64  `json:"service_charge"`
	RecipientName  string `json:"recipient_name"`
	PrisonerNumber string `json:"prisoner_number"`
	PrisonerDOB    string `json:"prisoner_dob"`
}

// patchBody собирает тело PATCH только из заданных полей.
func patchBody(u domain.PaymentUpdate) map[string]any {
	body := make(map[string]any)

	if u.Status != nil {
		body["status"] = string(*u.Status)
	}
	if u.ProcessorID != nil {
		body["processor_id"] = *u.ProcessorID
	}
	if u.Email != nil {
		body["email"] = *u.Email
	}
	if u.ProviderID != nil {
		body["worldpay_id"] = *u.ProviderID
	}
	if u.ReceivedAt != nil {
		body["received_at"] = u.ReceivedAt.UTC().Format(time.RFC3339Nano)
	}
	if c := u.Card; c != nil {
		setIfNotEmpty(body, "cardholder_name", c.CardholderName)
		setIfNotEmpty(body, "card_brand", c.CardBrand)
		setIfNotEmpty(body, "card_number_first_digits", c.FirstDigits)
		setIfNotEmpty(body, "card_number_last_digits", c.LastDigits)
		setIfNotEmpty(body, "card_expiry_date", c.ExpiryDate)
		if a := c.BillingAddress; a != nil {
			body["billing_address"] = billingAddressDTO{
				Line1:    a.Line1,
				Line2:    a.Line2,
				City:     a.City,
				Postcode: a.Postcode,
				Country:  a.Country,
			}
		}
	}

	return body
}

func setIfNotEmpty(body map[string]any, key, value string) {
	if value != "" {
		body[key] = value
	}
}
