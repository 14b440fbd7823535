package domain

import "errors"

// Доменные ошибки send-money.
var (
	// ErrPaymentNotFound — платёж не найден во внутреннем API.
	ErrPaymentNotFound = errors.New("платёж не найден")

	// ErrPaymentNotPending — платёж уже в конечном статусе.
	ErrPaymentNotPending = errors.New("платёж уже обработан")

	// ErrInvalidAmount — сумма меньше минимальной.
	ErrInvalidAmount = errors.New("сумма платежа должна быть не меньше 0.01")

	// ErrInvalidPrisonerNumber — номер заключённого не соответствует формату.
	ErrInvalidPrisonerNumber = errors.New("некорректный формат номера заключённого")
)
