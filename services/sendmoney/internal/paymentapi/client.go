// Package paymentapi — клиент внутреннего API платежей (PaymentStore).
// API владеет записью платежа; send-money читает pending платежи и
// отправляет частичные патчи, которые сервер применяет как merge.
package paymentapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/remote"
)

// APIName — имя API в метриках и спанах.
const APIName = "payments_api"

// DefaultPageSize — размер страницы при выборке pending платежей.
const DefaultPageSize = 500

// Config — настройки клиента.
type Config struct {
	BaseURL   string
	Token     remote.TokenFunc
	Timeout   time.Duration
	PageSize  int
	Transport http.RoundTripper
}

// Client — клиент внутреннего API платежей.
type Client struct {
	remote   *remote.Client
	pageSize int
}

// New создаёт клиента.
func New(cfg Config) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Client{
		remote: remote.New(remote.Config{
			API:       APIName,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			Token:     cfg.Token,
			Transport: cfg.Transport,
		}),
		pageSize: cfg.PageSize,
	}
}

// ListPending возвращает все pending платежи, изменённые раньше modifiedBefore.
// Нулевой modifiedBefore — без фильтра по времени.
func (c *Client) ListPending(ctx context.Context, modifiedBefore time.Time) ([]*domain.Payment, error) {
	var payments []*domain.Payment

	for offset := 0; ; offset += c.pageSize {
		query := url.Values{
			"status": {string(domain.PaymentStatusPending)},
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(c.pageSize)},
		}
		if !modifiedBefore.IsZero() {
			query.Set("modified_before", modifiedBefore.UTC().Format(time.RFC3339))
		}

		var page listResponse
		err := c.remote.Do(ctx, remote.Request{
			Operation: "list_pending",
			Method:    http.MethodGet,
			Path:      "/payments/",
			Query:     query,
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("ошибка получения pending платежей (offset=%d): %w", offset, err)
		}

		for i := range page.Results {
			payments = append(payments, page.Results[i].toDomain())
		}

		if len(page.Results) == 0 || offset+len(page.Results) >= page.Count {
			break
		}
	}

	return payments, nil
}

// Get возвращает платёж по ссылке.
func (c *Client) Get(ctx context.Context, reference string) (*domain.Payment, error) {
	var dto paymentDTO
	err := c.remote.Do(ctx, remote.Request{
		Operation: "get",
		Method:    http.MethodGet,
		Path:      paymentPath(reference),
	}, &dto)
	if err != nil {
		return nil, notFoundAsDomain(err)
	}
	return dto.toDomain(), nil
}

// Create создаёт pending платёж и возвращает его с присвоенной ссылкой.
func (c *Client) Create(ctx context.Context, p NewPayment) (*domain.Payment, error) {
	var dto paymentDTO
	err := c.remote.Do(ctx, remote.Request{
		Operation: "create",
		Method:    http.MethodPost,
		Path:      "/payments/",
		Body: createRequest{
			Amount:         p.Amount,
			ServiceCharge:  p.ServiceCharge,
			RecipientName:  p.RecipientName,
			PrisonerNumber: p.PrisonerNumber,
			PrisonerDOB:    p.PrisonerDOB.Format(dateLayout),
		},
		Expect: []int{http.StatusCreated},
	}, &dto)
	if err != nil {
		return nil, err
	}
	if dto.UUID == "" {
		return nil, fmt.Errorf("%w: в ответе нет uuid", remote.ErrMalformedResponse)
	}
	return dto.toDomain(), nil
}

// Patch отправляет частичное обновление. Пустой патч не отправляется.
func (c *Client) Patch(ctx context.Context, reference string, update domain.PaymentUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	err := c.remote.Do(ctx, remote.Request{
		Operation: "patch",
		Method:    http.MethodPatch,
		Path:      paymentPath(reference),
		Body:      patchBody(update),
		Expect:    []int{http.StatusOK, http.StatusNoContent},
	}, nil)
	if err != nil {
		return notFoundAsDomain(err)
	}
	return nil
}

func paymentPath(reference string) string {
	return "/payments/" + url.PathEscape(reference) + "/"
}

func notFoundAsDomain(err error) error {
	if errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrPaymentNotFound, err)
	}
	return err
}
