package domain

import (
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places money is rounded to when it
// is persisted or rendered.
const CurrencyPlaces = 2

// RoundMoney rounds an amount to currency precision. Only call it at
// persistence and presentation boundaries; intermediate sums stay exact.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}

// ToMinorUnits converts an amount to the smallest currency unit (cents),
// rounding half away from zero first.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return RoundMoney(amount).Shift(CurrencyPlaces).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -CurrencyPlaces)
}
