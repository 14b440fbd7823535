package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"example.com/send-money/pkg/circuitbreaker"
	"example.com/send-money/pkg/logger"
	"example.com/send-money/pkg/metrics"
	"example.com/send-money/pkg/middleware"
)

// DefaultTimeout — ограничение на один вызов внешнего API.
const DefaultTimeout = 15 * time.Second

// maxErrorBody — сколько байт тела ошибки сохраняется в HTTPError.
const maxErrorBody = 2048

// TokenFunc возвращает bearer токен для очередного запроса.
type TokenFunc func() (string, error)

// StaticToken — TokenFunc с постоянным ключом (ключ API шлюза).
func StaticToken(token string) TokenFunc {
	return func() (string, error) { return token, nil }
}

// Config — настройки клиента.
type Config struct {
	API       string        // имя API для метрик, спанов и breaker: "govpay", "payments_api"
	BaseURL   string        // например "https://publicapi.payments.service.gov.uk/v1"
	Timeout   time.Duration // 0 — DefaultTimeout
	Token     TokenFunc     // nil — без Authorization
	Transport http.RoundTripper
	Breaker   *circuitbreaker.Breaker // nil — breaker с настройками по умолчанию
}

// Client выполняет JSON запросы к одному внешнему API.
type Client struct {
	api     string
	baseURL string
	http    *http.Client
	token   TokenFunc
	breaker *circuitbreaker.Breaker
	tracer  trace.Tracer
}

// New создаёт клиента.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.New(cfg.API, IsTransient)
	}

	return &Client{
		api:     cfg.API,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		token:   cfg.Token,
		breaker: cfg.Breaker,
		tracer:  otel.Tracer("send-money/remote"),
	}
}

// Request описывает один вызов.
type Request struct {
	Operation string     // имя операции для метрик: "fetch", "capture", "patch"...
	Method    string
	Path      string     // относительно BaseURL, начинается с "/"
	Query     url.Values
	Body      any        // сериализуется в JSON, nil — без тела
	Expect    []int      // успешные статусы; пусто — только 200
}

// Do выполняет запрос и декодирует тело успешного ответа в out (если out != nil).
// Ошибки приводятся к таксономии пакета: ErrNotFound, ErrTimeout,
// ErrAuthentication, *HTTPError, ErrMalformedResponse.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	ctx, span := c.tracer.Start(ctx, c.api+"."+req.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	start := time.Now()
	err := c.do(ctx, req, out)
	metrics.RecordRemoteCall(c.api, req.Operation, Result(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Result(err))
	}
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	var (
		status int
		body   []byte
	)
	err = c.breaker.Execute(func() error {
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return classifyTransportError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		status = resp.StatusCode
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return classifyTransportError(err)
		}
		return statusError(status, body, req.Expect)
	})
	if err != nil {
		logger.Ctx(ctx).Debug().
			Err(err).
			Str("api", c.api).
			Str("operation", req.Operation).
			Int("status", status).
			Msg("Вызов внешнего API завершился ошибкой")
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, req.Method, req.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации запроса %s: %w", req.Operation, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса %s: %w", req.Operation, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		httpReq.Header.Set(middleware.HeaderTraceID, traceID)
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		httpReq.Header.Set(middleware.HeaderCorrelationID, correlationID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	return httpReq, nil
}

// statusError переводит код ответа в ошибку таксономии.
func statusError(status int, body []byte, expect []int) error {
	if len(expect) == 0 {
		expect = []int{http.StatusOK}
	}
	if slices.Contains(expect, status) {
		return nil
	}

	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: статус %d", ErrAuthentication, status)
	}

	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{Status: status, Body: strings.TrimSpace(string(body))}
}

// IsNotFound — сокращение для errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
