package tp_sl

import (
	"github.com/shopspring/decimal"

	"lotengine/src/model"
	"lotengine/src/ticks"
)

// ShouldTriggerSecure reports whether the secure portion of the pool should be
// taken: the pool is enabled and non-empty, pooled P&L reached SecureTpPct and
// the secure bucket (TotalQty × SecurePct) still has room. Once the bucket is
// full it keeps returning false while price stays above the threshold.
func ShouldTriggerSecure(view model.CoinPoolView, cfg model.PoolConfig, secureFilledQty decimal.Decimal) bool {
	if !cfg.Enabled || !view.TotalQty.IsPositive() {
		return false
	}
	if view.PoolPnlPct.LessThan(cfg.SecureTpPct) {
		return false
	}
	return secureFilledQty.LessThan(view.TotalQty.Mul(cfg.SecurePct))
}

// SecureQuantity is the room left in the secure bucket, floored to the
// quantity tick and never more than the pool holds.
func SecureQuantity(view model.CoinPoolView, cfg model.PoolConfig, secureFilledQty decimal.Decimal) decimal.Decimal {
	room := view.TotalQty.Mul(cfg.SecurePct).Sub(secureFilledQty)
	room = decimal.Min(room, view.TotalQty)
	room = ticks.RoundToTick(room, cfg.QtyTick)
	if room.IsNegative() {
		return decimal.Zero
	}
	return room
}

// ShouldArmRunner reports whether the trailing stop on the remainder should be
// armed. Arming is one-way; an armed pool never reports true again.
func ShouldArmRunner(view model.CoinPoolView, cfg model.PoolConfig, isArmed bool) bool {
	if isArmed || !cfg.Enabled || !view.TotalQty.IsPositive() {
		return false
	}
	return view.PoolPnlPct.GreaterThanOrEqual(cfg.RunnerArmPct)
}

// PoolStopLossHit reports whether pooled P&L fell to -SecureSlPct or below.
// A zero SecureSlPct disables the check.
func PoolStopLossHit(view model.CoinPoolView, cfg model.PoolConfig) bool {
	if !cfg.Enabled || !view.TotalQty.IsPositive() || !cfg.SecureSlPct.IsPositive() {
		return false
	}
	return view.PoolPnlPct.LessThanOrEqual(cfg.SecureSlPct.Neg())
}
