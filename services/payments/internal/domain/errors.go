// Package domain содержит бизнес-сущности API платежей.
package domain

import "errors"

// Доменные ошибки API платежей.
var (
	// ErrPaymentNotFound — платёж не найден.
	ErrPaymentNotFound = errors.New("платёж не найден")

	// ErrInvalidTransition — недопустимый переход статуса.
	ErrInvalidTransition = errors.New("недопустимый переход статуса платежа")

	// ErrInvalidStatus — статус вне закрытого набора.
	ErrInvalidStatus = errors.New("неизвестный статус платежа")

	// ErrFieldConflict — попытка перезаписать уже заданное поле другим значением.
	ErrFieldConflict = errors.New("поле уже задано другим значением")

	// ErrInvalidAmount — некорректная сумма платежа.
	ErrInvalidAmount = errors.New("сумма платежа должна быть больше нуля")

	// ErrInvalidPayment — не заполнены обязательные поля.
	ErrInvalidPayment = errors.New("некорректные данные платежа")
)
