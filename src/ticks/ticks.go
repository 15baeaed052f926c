package ticks

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidTick = errors.New("tick must be positive")

// Epsilon is the remaining amount at or below which a lot counts as closed.
var Epsilon = decimal.New(1, -8)

var hundred = decimal.NewFromInt(100)

// Hundred is 100 as a decimal, for percent conversions.
func Hundred() decimal.Decimal { return hundred }

// RoundToTick truncates value down to the tick grid: floor(value/tick)*tick.
// A tick <= 0 leaves the value unchanged.
func RoundToTick(value, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return value
	}
	return value.Div(tick).Floor().Mul(tick)
}

// RoundToNearestTick rounds value to the closest multiple of tick.
func RoundToNearestTick(value, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return value
	}
	return value.Div(tick).Round(0).Mul(tick)
}

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// MeetsMinNotional reports whether amount*price reaches minNotional.
// A non-positive minNotional disables the check.
func MeetsMinNotional(amount, price, minNotional decimal.Decimal) bool {
	if !minNotional.IsPositive() {
		return true
	}
	return amount.Mul(price).GreaterThanOrEqual(minNotional)
}

// IsDust reports whether an amount is at or below Epsilon.
func IsDust(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(Epsilon)
}

// PctChange returns (to-from)/from*100, or zero when from is zero.
func PctChange(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(hundred)
}
