package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/service"
)

// MockPaymentFlow — мок сценариев оплаты.
type MockPaymentFlow struct {
	InitiateFunc      func(ctx context.Context, d service.PaymentDetails) (*service.InitiateResult, error)
	CheckOnReturnFunc func(ctx context.Context, reference string) (*service.ConfirmationResult, error)
	BankTransferFunc  func(prisonerNumber string, dob time.Time) (*service.BankTransfer, error)
}

func (m *MockPaymentFlow) Quote(amount int64) service.Quote {
	return service.Quote{Amount: amount, ServiceCharge: 61, Total: amount + 61}
}

func (m *MockPaymentFlow) Initiate(ctx context.Context, d service.PaymentDetails) (*service.InitiateResult, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, d)
	}
	return nil, errors.New("не настроено")
}

func (m *MockPaymentFlow) CheckOnReturn(ctx context.Context, reference string) (*service.ConfirmationResult, error) {
	if m.CheckOnReturnFunc != nil {
		return m.CheckOnReturnFunc(ctx, reference)
	}
	return nil, errors.New("не настроено")
}

func (m *MockPaymentFlow) BankTransferDetails(prisonerNumber string, dob time.Time) (*service.BankTransfer, error) {
	if m.BankTransferFunc != nil {
		return m.BankTransferFunc(prisonerNumber, dob)
	}
	return nil, errors.New("не настроено")
}

var allOptions = Options{DebitCard: true, BankTransfer: true}

func setupTestRouter(t *testing.T, flow PaymentFlow, options Options) *gin.Engine {
	t.Helper()

	r, err := NewRouter(RouterConfig{Flow: flow, Options: options})
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validCreateRequest() map[string]any {
	return map[string]any{
		"amount":          "17.00",
		"prisoner_name":   "John",
		"prisoner_number": "a1409ae",
		"prisoner_dob":    "1989-01-21",
	}
}

// =====================================
// Тесты CreatePayment
// =====================================

func TestCreatePayment_Success(t *testing.T) {
	flow := &MockPaymentFlow{
		InitiateFunc: func(_ context.Context, d service.PaymentDetails) (*service.InitiateResult, error) {
			assert.Equal(t, int64(1700), d.Amount)
			assert.Equal(t, "a1409ae", d.PrisonerNumber)
			assert.Equal(t, time.Date(1989, 1, 21, 0, 0, 0, 0, time.UTC), d.PrisonerDOB)
			return &service.InitiateResult{
				Reference:      "wargle-blargle",
				ShortReference: "WARGLE-B",
				NextURL:        "https://pay.example/secure",
				Quote:          service.Quote{Amount: 1700, ServiceCharge: 61, Total: 1761},
			}, nil
		},
	}

	w := doJSON(setupTestRouter(t, flow, allOptions), http.MethodPost, "/api/v1/payments", validCreateRequest())

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp CreatePaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "wargle-blargle", resp.PaymentRef)
	assert.Equal(t, "https://pay.example/secure", resp.NextURL)
	assert.True(t, resp.Quote.Total.Equal(decimal.RequireFromString("17.61")))
}

func TestCreatePayment_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(body map[string]any)
	}{
		{"неверный номер заключённого", func(b map[string]any) { b["prisoner_number"] = "1409AEA" }},
		{"нет имени", func(b map[string]any) { delete(b, "prisoner_name") }},
		{"неверная дата рождения", func(b map[string]any) { b["prisoner_dob"] = "21/01/1989" }},
		{"нулевая сумма", func(b map[string]any) { b["amount"] = "0" }},
		{"три знака после запятой", func(b map[string]any) { b["amount"] = "1.005" }},
		{"нет суммы", func(b map[string]any) { delete(b, "amount") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &MockPaymentFlow{
				InitiateFunc: func(context.Context, service.PaymentDetails) (*service.InitiateResult, error) {
					t.Fatal("Initiate не должен вызываться")
					return nil, nil
				},
			}
			body := validCreateRequest()
			tt.mutate(body)

			w := doJSON(setupTestRouter(t, flow, allOptions), http.MethodPost, "/api/v1/payments", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_request")
		})
	}
}

func TestCreatePayment_FlowErrorShowsOnlyShortReference(t *testing.T) {
	flow := &MockPaymentFlow{
		InitiateFunc: func(context.Context, service.PaymentDetails) (*service.InitiateResult, error) {
			return nil, &service.FlowError{ShortReference: "WARGLE-B", Err: errors.New("шлюз ответил 500: секретные детали")}
		},
	}

	w := doJSON(setupTestRouter(t, flow, allOptions), http.MethodPost, "/api/v1/payments", validCreateRequest())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"short_payment_ref":"WARGLE-B"`)
	assert.NotContains(t, w.Body.String(), "секретные детали")
}

func TestCreatePayment_DisabledOption(t *testing.T) {
	w := doJSON(setupTestRouter(t, &MockPaymentFlow{}, Options{BankTransfer: true}),
		http.MethodPost, "/api/v1/payments", validCreateRequest())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =====================================
// Тесты Quote
// =====================================

func TestQuote(t *testing.T) {
	r := setupTestRouter(t, &MockPaymentFlow{}, allOptions)

	w := doJSON(r, http.MethodGet, "/api/v1/service-charge?amount=17.00", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.ServiceCharge.Equal(decimal.RequireFromString("0.61")))
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("17.61")))

	w = doJSON(r, http.MethodGet, "/api/v1/service-charge?amount=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =====================================
// Тесты Confirmation
// =====================================

func TestConfirmation(t *testing.T) {
	tests := []struct {
		name       string
		result     *service.ConfirmationResult
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name: "платёж списан",
			result: &service.ConfirmationResult{
				Success: true, ShortReference: "WARGLE-B", Outcome: "taken",
				PrisonerName: "John", Amount: decimal.RequireFromString("17"),
			},
			wantStatus: http.StatusOK,
			wantBody:   `"success":true`,
		},
		{
			name:       "ещё не завершён",
			result:     &service.ConfirmationResult{ShortReference: "WARGLE-B", Outcome: "await_settlement"},
			wantStatus: http.StatusOK,
			wantBody:   `"success":false`,
		},
		{
			name:       "платёж уже обработан",
			err:        service.ErrFlowAborted,
			wantStatus: http.StatusConflict,
			wantBody:   "flow_aborted",
		},
		{
			name:       "сбой шлюза",
			err:        &service.FlowError{ShortReference: "WARGLE-B", Err: errors.New("timeout")},
			wantStatus: http.StatusBadGateway,
			wantBody:   "WARGLE-B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &MockPaymentFlow{
				CheckOnReturnFunc: func(_ context.Context, reference string) (*service.ConfirmationResult, error) {
					assert.Equal(t, "wargle-blargle", reference)
					return tt.result, tt.err
				},
			}

			w := doJSON(setupTestRouter(t, flow, allOptions), http.MethodGet,
				"/api/v1/confirmation?payment_ref=wargle-blargle", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestConfirmation_MissingReference(t *testing.T) {
	w := doJSON(setupTestRouter(t, &MockPaymentFlow{}, allOptions), http.MethodGet, "/api/v1/confirmation", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =====================================
// Тесты BankTransfer
// =====================================

func TestBankTransfer(t *testing.T) {
	flow := &MockPaymentFlow{
		BankTransferFunc: func(number string, dob time.Time) (*service.BankTransfer, error) {
			assert.Equal(t, "A1409AE", number)
			return &service.BankTransfer{
				Reference:     domain.BankTransferReference(number, dob),
				AccountNumber: "12345678",
				SortCode:      "101010",
			}, nil
		},
	}
	body := map[string]any{"prisoner_number": "A1409AE", "prisoner_dob": "1989-01-21"}

	t.Run("реквизиты", func(t *testing.T) {
		w := doJSON(setupTestRouter(t, flow, allOptions), http.MethodPost, "/api/v1/bank-transfer", body)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"reference":"A1409AE 21/01/1989"`)
	})

	t.Run("невалидный запрос", func(t *testing.T) {
		w := doJSON(setupTestRouter(t, flow, allOptions), http.MethodPost, "/api/v1/bank-transfer",
			map[string]any{"prisoner_number": "A1409AE"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("способ отключён", func(t *testing.T) {
		w := doJSON(setupTestRouter(t, flow, Options{DebitCard: true}), http.MethodPost, "/api/v1/bank-transfer", body)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReadiness(t *testing.T) {
	r, err := NewRouter(RouterConfig{
		Flow:           &MockPaymentFlow{},
		ReadinessCheck: func(context.Context) error { return errors.New("redis недоступен") },
	})
	require.NoError(t, err)

	w := doJSON(r, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
