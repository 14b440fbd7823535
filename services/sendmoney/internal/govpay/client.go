package govpay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"example.com/send-money/services/sendmoney/internal/remote"
)

// APIName — имя шлюза в метриках и спанах.
const APIName = "govpay"

// Config — настройки клиента шлюза.
type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client — типизированная обёртка над HTTP API шлюза.
// Ошибки — из таксономии пакета remote.
type Client struct {
	remote *remote.Client
}

// New создаёт клиента шлюза.
func New(cfg Config) *Client {
	return &Client{
		remote: remote.New(remote.Config{
			API:       APIName,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			Token:     remote.StaticToken(cfg.AuthToken),
			Transport: cfg.Transport,
		}),
	}
}

// Create создаёт платёж в шлюзе. Ожидается 201 с payment_id и next_url.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Payment, error) {
	var p Payment
	err := c.remote.Do(ctx, remote.Request{
		Operation: "create",
		Method:    http.MethodPost,
		Path:      "/payments",
		Body:      req,
		Expect:    []int{http.StatusCreated},
	}, &p)
	if err != nil {
		return nil, err
	}

	if p.ID == "" || p.NextURL() == "" {
		return nil, fmt.Errorf("%w: в ответе нет payment_id или next_url", remote.ErrMalformedResponse)
	}
	return &p, nil
}

// Fetch возвращает снапшот платежа. remote.ErrNotFound, если шлюз его не знает.
func (c *Client) Fetch(ctx context.Context, processorID string) (*Payment, error) {
	var p Payment
	err := c.remote.Do(ctx, remote.Request{
		Operation: "fetch",
		Method:    http.MethodGet,
		Path:      "/payments/" + url.PathEscape(processorID),
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchEvents возвращает историю состояний платежа в порядке шлюза.
func (c *Client) FetchEvents(ctx context.Context, processorID string) ([]Event, error) {
	var resp struct {
		Events []Event `json:"events"`
	}
	err := c.remote.Do(ctx, remote.Request{
		Operation: "fetch_events",
		Method:    http.MethodGet,
		Path:      "/payments/" + url.PathEscape(processorID) + "/events",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Capture списывает отложенный платёж. Успех — 204 без тела.
func (c *Client) Capture(ctx context.Context, processorID string) error {
	return c.remote.Do(ctx, remote.Request{
		Operation: "capture",
		Method:    http.MethodPost,
		Path:      "/payments/" + url.PathEscape(processorID) + "/capture",
		Expect:    []int{http.StatusNoContent},
	}, nil)
}
