package tp_sl

import (
	"github.com/shopspring/decimal"

	"lotengine/src/model"
	"lotengine/src/ticks"
)

// NextTrailingStop computes the runner stop for a high-water mark:
//
//	stop = floor(highWater * (1 - trailPct/100) / tick) * tick
//
// Rounding down keeps the stop below the exact level, so price gets a little
// more room before the sell fires.
func NextTrailingStop(highWaterPrice decimal.Decimal, cfg model.PoolConfig, priceTick decimal.Decimal) decimal.Decimal {
	return trailingStop(highWaterPrice, cfg.RunnerTrailPct, priceTick)
}

func trailingStop(highWaterPrice, trailPct, priceTick decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(trailPct.Div(ticks.Hundred()))
	return ticks.RoundToTick(highWaterPrice.Mul(factor), priceTick)
}

// RatchetStop applies a candidate stop to the current one. The stop only moves up.
//
// - no current stop: candidate is taken
// - candidate above current: candidate is taken
// - otherwise the current stop is kept
func RatchetStop(current *decimal.Decimal, candidate decimal.Decimal) (newStop decimal.Decimal, moved bool) {
	if current == nil {
		return candidate, true
	}
	if candidate.GreaterThan(*current) {
		return candidate, true
	}
	return *current, false
}

// RaiseHighWater returns max(highWater, price) and whether it moved.
func RaiseHighWater(highWater, price decimal.Decimal) (decimal.Decimal, bool) {
	if price.GreaterThan(highWater) {
		return price, true
	}
	return highWater, false
}

// ShouldTriggerTrailingStop is true iff a stop is set and price is at or below it.
func ShouldTriggerTrailingStop(currentPrice decimal.Decimal, stopPrice *decimal.Decimal) bool {
	if stopPrice == nil || !stopPrice.IsPositive() {
		return false
	}
	return currentPrice.LessThanOrEqual(*stopPrice)
}
