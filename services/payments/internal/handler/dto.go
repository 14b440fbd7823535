package handler

import (
	"time"

	"example.com/send-money/services/payments/internal/domain"
)

// dateLayout — формат даты рождения заключённого.
const dateLayout = "2006-01-02"

// =============================================================================
// Request DTOs
// =============================================================================

// CreatePaymentRequest — тело POST /payments/.
type CreatePaymentRequest struct {
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	ServiceCharge  int64  `json:"service_charge" binding:"gte=0"`
	RecipientName  string `json:"recipient_name" binding:"max=250"`
	PrisonerNumber string `json:"prisoner_number" binding:"required,max=250"`
	PrisonerDOB    string `json:"prisoner_dob" binding:"required,datetime=2006-01-02"`
}

// PatchPaymentRequest — тело PATCH /payments/:ref/. Отсутствующие поля не меняются.
type PatchPaymentRequest struct {
	Status         *string                `json:"status"`
	ProcessorID    *string                `json:"processor_id"`
	Email          *string                `json:"email" binding:"omitempty,email"`
	WorldpayID     *string                `json:"worldpay_id"`
	CardholderName *string                `json:"cardholder_name"`
	CardBrand      *string                `json:"card_brand"`
	FirstDigits    *string                `json:"card_number_first_digits" binding:"omitempty,max=6"`
	LastDigits     *string                `json:"card_number_last_digits" binding:"omitempty,max=4"`
	ExpiryDate     *string                `json:"card_expiry_date"`
	BillingAddress *domain.BillingAddress `json:"billing_address"`
	ReceivedAt     *time.Time             `json:"received_at"`
}

// toUpdate переводит тело запроса в доменное обновление.
func (r PatchPaymentRequest) toUpdate() domain.Update {
	u := domain.Update{
		ProcessorID:    r.ProcessorID,
		Email:          r.Email,
		WorldpayID:     r.WorldpayID,
		CardholderName: r.CardholderName,
		CardBrand:      r.CardBrand,
		FirstDigits:    r.FirstDigits,
		LastDigits:     r.LastDigits,
		ExpiryDate:     r.ExpiryDate,
		BillingAddress: r.BillingAddress,
		ReceivedAt:     r.ReceivedAt,
	}
	if r.Status != nil {
		status := domain.PaymentStatus(*r.Status)
		u.Status = &status
	}
	return u
}

// ListPaymentsQuery — параметры GET /payments/.
type ListPaymentsQuery struct {
	Status         string `form:"status"`
	ModifiedBefore string `form:"modified_before"`
	Offset         int    `form:"offset" binding:"gte=0"`
	Limit          int    `form:"limit" binding:"gte=0"`
}

// =============================================================================
// Response DTOs
// =============================================================================

// SecurityCheckResponse — вердикт проверки платежа.
type SecurityCheckResponse struct {
	Status       string `json:"status"`
	UserActioned bool   `json:"user_actioned"`
}

// PaymentResponse — платёж в ответе API.
type PaymentResponse struct {
	UUID           string                 `json:"uuid"`
	ProcessorID    *string                `json:"processor_id"`
	RecipientName  string                 `json:"recipient_name"`
	Amount         int64                  `json:"amount"`
	ServiceCharge  int64                  `json:"service_charge"`
	Status         string                 `json:"status"`
	PrisonerNumber string                 `json:"prisoner_number"`
	PrisonerDOB    string                 `json:"prisoner_dob"`
	Email          *string                `json:"email"`
	ReceivedAt     *time.Time             `json:"received_at"`
	Created        time.Time              `json:"created"`
	Modified       time.Time              `json:"modified"`
	SecurityCheck  *SecurityCheckResponse `json:"security_check"`

	CardholderName string                 `json:"cardholder_name"`
	CardBrand      string                 `json:"card_brand"`
	WorldpayID     *string                `json:"worldpay_id"`
	FirstDigits    string                 `json:"card_number_first_digits"`
	LastDigits     string                 `json:"card_number_last_digits"`
	ExpiryDate     string                 `json:"card_expiry_date"`
	BillingAddress *domain.BillingAddress `json:"billing_address"`
}

// ListPaymentsResponse — страница платежей.
type ListPaymentsResponse struct {
	Count   int64             `json:"count"`
	Results []PaymentResponse `json:"results"`
}

// toPaymentResponse конвертирует доменный платёж в DTO.
func toPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		UUID:           p.UUID,
		ProcessorID:    p.ProcessorID,
		RecipientName:  p.RecipientName,
		Amount:         p.Amount,
		ServiceCharge:  p.ServiceCharge,
		Status:         string(p.Status),
		PrisonerNumber: p.PrisonerNumber,
		PrisonerDOB:    p.PrisonerDOB.Format(dateLayout),
		Email:          p.Email,
		ReceivedAt:     p.ReceivedAt,
		Created:        p.CreatedAt,
		Modified:       p.ModifiedAt,
		CardholderName: p.Card.CardholderName,
		CardBrand:      p.Card.CardBrand,
		WorldpayID:     p.WorldpayID,
		FirstDigits:    p.Card.FirstDigits,
		LastDigits:     p.Card.LastDigits,
		ExpiryDate:     p.Card.ExpiryDate,
		BillingAddress: p.Card.BillingAddress,
	}
	if p.SecurityCheck != nil {
		resp.SecurityCheck = &SecurityCheckResponse{
			Status:       p.SecurityCheck.Status,
			UserActioned: p.SecurityCheck.UserActioned,
		}
	}
	return resp
}
