// Package remote — общий HTTP транспорт к внешним API (платёжный шлюз,
// внутренний API платежей) и таксономия их ошибок.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"example.com/send-money/pkg/circuitbreaker"
)

var (
	// ErrNotFound — API ответил 404. Для шлюза это терминальный исход.
	ErrNotFound = errors.New("ресурс не найден во внешнем API")

	// ErrTimeout — вызов не уложился в таймаут. Временная ошибка.
	ErrTimeout = errors.New("таймаут вызова внешнего API")

	// ErrAuthentication — API отверг учётные данные (401/403) или токен не выпущен.
	ErrAuthentication = errors.New("ошибка аутентификации во внешнем API")

	// ErrMalformedResponse — тело ответа не разбирается как ожидаемый JSON.
	ErrMalformedResponse = errors.New("некорректный ответ внешнего API")
)

// HTTPError — ответ с неожиданным статусом (кроме 404 и 401/403).
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("внешний API вернул статус %d", e.Status)
	}
	return fmt.Sprintf("внешний API вернул статус %d: %s", e.Status, e.Body)
}

// IsTransient возвращает true для ошибок, после которых платёж остаётся
// pending и повторяется в следующем проходе: таймауты, сетевые сбои, 5xx.
// Используется и как FailureFunc для circuit breaker.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, circuitbreaker.ErrOpen) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= 500 || httpErr.Status == 429
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// Result — метка исхода вызова для метрик.
func Result(err error) string {
	var httpErr *HTTPError

	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAuthentication):
		return "auth_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	case errors.As(err, &httpErr):
		return "http_error"
	default:
		return "error"
	}
}

// classifyTransportError приводит ошибку http.Client к таксономии пакета.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return err
}
