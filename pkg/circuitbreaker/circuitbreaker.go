// Package circuitbreaker предоставляет Circuit Breaker для вызовов внешних API
// (платёжный шлюз, внутренний API платежей).
//
// Состояния:
//   - Closed: нормальная работа, вызовы проходят
//   - Open: API недоступен, вызовы отклоняются мгновенно (без ожидания таймаута)
//   - Half-Open: пропускаем пробные вызовы для проверки восстановления
//
// Использование:
//
//	cb := circuitbreaker.New("govpay", remote.IsTransient)
//	err := cb.Execute(func() error { return doRequest() })
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"example.com/send-money/pkg/logger"
)

// ErrOpen возвращается, когда breaker отклоняет вызов без обращения к API.
var ErrOpen = errors.New("внешний API временно недоступен (circuit breaker)")

// Settings — настройки Circuit Breaker.
type Settings struct {
	MaxRequests  uint32        // Макс. вызовов в Half-Open
	Interval     time.Duration // Интервал сброса счётчиков в Closed
	Timeout      time.Duration // Время в Open до перехода в Half-Open
	FailureRatio float64       // Доля сбоев для перехода в Open
	MinRequests  uint32        // Мин. вызовов для расчёта доли
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FailureFunc решает, считается ли ошибка сбоем API.
// Бизнес-ответы (404, 409) не должны открывать breaker.
type FailureFunc func(err error) bool

// Breaker — обёртка над gobreaker с логированием смены состояний.
type Breaker struct {
	cb        *gobreaker.CircuitBreaker[struct{}]
	name      string
	isFailure FailureFunc
}

// New создаёт Circuit Breaker с настройками по умолчанию.
// isFailure == nil означает: любая ошибка — сбой.
func New(name string, isFailure FailureFunc) *Breaker {
	return NewWithSettings(name, DefaultSettings(), isFailure)
}

// NewWithSettings создаёт Circuit Breaker с пользовательскими настройками.
func NewWithSettings(name string, s Settings, isFailure FailureFunc) *Breaker {
	if isFailure == nil {
		isFailure = func(err error) bool { return err != nil }
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= s.FailureRatio
		},

		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log := logger.With().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Logger()

			switch to {
			case gobreaker.StateOpen:
				log.Warn().Msg("Circuit Breaker ОТКРЫТ — внешний API недоступен")
			case gobreaker.StateHalfOpen:
				log.Info().Msg("Circuit Breaker ПОЛУОТКРЫТ — пробуем восстановить")
			case gobreaker.StateClosed:
				log.Info().Msg("Circuit Breaker ЗАКРЫТ — внешний API восстановлен")
			}
		},
	})

	return &Breaker{cb: cb, name: name, isFailure: isFailure}
}

// Execute выполняет fn через breaker.
// Возвращает исходную ошибку fn, либо ErrOpen, если вызов был отклонён.
func (b *Breaker) Execute(fn func() error) error {
	var callErr error

	_, cbErr := b.cb.Execute(func() (struct{}, error) {
		callErr = fn()
		if callErr != nil && b.isFailure(callErr) {
			return struct{}{}, callErr
		}
		// успех или бизнес-ошибка — для breaker это успех
		return struct{}{}, nil
	})

	if errors.Is(cbErr, gobreaker.ErrOpenState) || errors.Is(cbErr, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}

	return callErr
}

// State возвращает текущее состояние breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name возвращает имя breaker.
func (b *Breaker) Name() string {
	return b.name
}
