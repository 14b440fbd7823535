// Package handler содержит HTTP обработчики send-money.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"example.com/send-money/pkg/logger"
	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/service"
)

// dateLayout — формат даты рождения в запросах.
const dateLayout = "2006-01-02"

// PaymentFlow — сценарии оплаты (service.PaymentService).
type PaymentFlow interface {
	Quote(amount int64) service.Quote
	Initiate(ctx context.Context, d service.PaymentDetails) (*service.InitiateResult, error)
	CheckOnReturn(ctx context.Context, reference string) (*service.ConfirmationResult, error)
	BankTransferDetails(prisonerNumber string, dob time.Time) (*service.BankTransfer, error)
}

// Options — доступные плательщику способы оплаты.
type Options struct {
	DebitCard    bool
	BankTransfer bool
}

// PaymentHandler — обработчик сценариев оплаты.
type PaymentHandler struct {
	flow    PaymentFlow
	options Options
}

// NewPaymentHandler создаёт обработчик.
func NewPaymentHandler(flow PaymentFlow, options Options) *PaymentHandler {
	return &PaymentHandler{flow: flow, options: options}
}

// === Request/Response DTOs ===

// CreatePaymentRequest — запрос на перевод картой. Сумма в фунтах.
type CreatePaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PrisonerName   string          `json:"prisoner_name" binding:"required,max=250"`
	PrisonerNumber string          `json:"prisoner_number" binding:"required,prisoner_number"`
	PrisonerDOB    string          `json:"prisoner_dob" binding:"required,datetime=2006-01-02"`
}

// BankTransferRequest — запрос реквизитов банковского перевода.
type BankTransferRequest struct {
	PrisonerNumber string `json:"prisoner_number" binding:"required,prisoner_number"`
	PrisonerDOB    string `json:"prisoner_dob" binding:"required,datetime=2006-01-02"`
}

// QuoteResponse — сумма с сервисным сбором, в фунтах.
type QuoteResponse struct {
	Amount        decimal.Decimal `json:"amount"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Total         decimal.Decimal `json:"total"`
}

// CreatePaymentResponse — созданный платёж и адрес страницы шлюза.
type CreatePaymentResponse struct {
	PaymentRef      string        `json:"payment_ref"`
	ShortPaymentRef string        `json:"short_payment_ref"`
	NextURL         string        `json:"next_url"`
	Quote           QuoteResponse `json:"quote"`
}

// ConfirmationResponse — итог проверки при возврате из шлюза.
type ConfirmationResponse struct {
	Success         bool            `json:"success"`
	ShortPaymentRef string          `json:"short_payment_ref"`
	Outcome         string          `json:"outcome"`
	PrisonerName    string          `json:"prisoner_name"`
	Amount          decimal.Decimal `json:"amount"`
}

// BankTransferResponse — реквизиты банковского перевода.
type BankTransferResponse struct {
	Reference     string `json:"reference"`
	AccountNumber string `json:"account_number"`
	SortCode      string `json:"sort_code"`
}

// === Handlers ===

// Quote считает сервисный сбор.
// GET /api/v1/service-charge?amount=17.00
func (h *PaymentHandler) Quote(c *gin.Context) {
	if !h.options.DebitCard {
		notFound(c)
		return
	}

	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		invalidRequest(c, "Неверная сумма перевода")
		return
	}
	minor, ok := minorUnits(amount)
	if !ok {
		invalidRequest(c, "Неверная сумма перевода")
		return
	}

	c.JSON(http.StatusOK, quoteToResponse(h.flow.Quote(minor)))
}

// CreatePayment создаёт платёж и возвращает адрес страницы шлюза.
// POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	if !h.options.DebitCard {
		notFound(c)
		return
	}

	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на создание платежа")
		invalidRequest(c, "Невалидные данные запроса")
		return
	}

	amount, ok := minorUnits(req.Amount)
	if !ok {
		invalidRequest(c, "Неверная сумма перевода")
		return
	}
	dob, _ := time.Parse(dateLayout, req.PrisonerDOB)

	result, err := h.flow.Initiate(ctx, service.PaymentDetails{
		Amount:         amount,
		PrisonerName:   req.PrisonerName,
		PrisonerNumber: req.PrisonerNumber,
		PrisonerDOB:    dob,
	})
	if err != nil {
		HandleError(c, err, "CreatePayment")
		return
	}

	c.JSON(http.StatusCreated, CreatePaymentResponse{
		PaymentRef:      result.Reference,
		ShortPaymentRef: result.ShortReference,
		NextURL:         result.NextURL,
		Quote:           quoteToResponse(result.Quote),
	})
}

// Confirmation проверяет платёж после возврата плательщика из шлюза.
// GET /api/v1/confirmation?payment_ref=...
func (h *PaymentHandler) Confirmation(c *gin.Context) {
	if !h.options.DebitCard {
		notFound(c)
		return
	}

	reference := c.Query("payment_ref")
	if reference == "" {
		invalidRequest(c, "payment_ref обязателен")
		return
	}

	result, err := h.flow.CheckOnReturn(c.Request.Context(), reference)
	if err != nil {
		HandleError(c, err, "Confirmation")
		return
	}

	c.JSON(http.StatusOK, ConfirmationResponse{
		Success:         result.Success,
		ShortPaymentRef: result.ShortReference,
		Outcome:         result.Outcome,
		PrisonerName:    result.PrisonerName,
		Amount:          result.Amount,
	})
}

// BankTransfer возвращает реквизиты банковского перевода.
// POST /api/v1/bank-transfer
func (h *PaymentHandler) BankTransfer(c *gin.Context) {
	if !h.options.BankTransfer {
		notFound(c)
		return
	}

	var req BankTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Ctx(c.Request.Context()).Debug().Err(err).Msg("Невалидный запрос реквизитов перевода")
		invalidRequest(c, "Невалидные данные запроса")
		return
	}
	dob, _ := time.Parse(dateLayout, req.PrisonerDOB)

	details, err := h.flow.BankTransferDetails(req.PrisonerNumber, dob)
	if err != nil {
		HandleError(c, err, "BankTransfer")
		return
	}

	c.JSON(http.StatusOK, BankTransferResponse{
		Reference:     details.Reference,
		AccountNumber: details.AccountNumber,
		SortCode:      details.SortCode,
	})
}

// === Helper functions ===

// minorUnits переводит сумму в пенсы. Больше двух знаков после запятой
// и суммы меньше минимальной не принимаются.
func minorUnits(amount decimal.Decimal) (int64, bool) {
	if !amount.Equal(amount.Round(2)) {
		return 0, false
	}
	minor := domain.MinorUnits(amount)
	if minor < domain.MinimumAmount {
		return 0, false
	}
	return minor, true
}

func quoteToResponse(q service.Quote) QuoteResponse {
	return QuoteResponse{
		Amount:        domain.MajorUnits(q.Amount),
		ServiceCharge: domain.MajorUnits(q.ServiceCharge),
		Total:         domain.MajorUnits(q.Total),
	}
}
