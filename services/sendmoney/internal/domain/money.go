package domain

import "github.com/shopspring/decimal"

// MinimumAmount — минимальная сумма перевода в пенсах.
const MinimumAmount int64 = 1

var hundred = decimal.NewFromInt(100)

// MajorUnits переводит пенсы в фунты.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// MinorUnits переводит фунты в пенсы. Доли пенса округляются вверх.
func MinorUnits(major decimal.Decimal) int64 {
	return major.Mul(hundred).Ceil().IntPart()
}

// ServiceCharge считает сервисный сбор в пенсах:
// amount * percentage / 100 + fixed, с округлением вверх до пенса.
func ServiceCharge(amount int64, percentage, fixed decimal.Decimal) int64 {
	if percentage.IsZero() && fixed.IsZero() {
		return 0
	}
	charge := MajorUnits(amount).Mul(percentage).Div(hundred).Add(fixed)
	return MinorUnits(charge)
}
