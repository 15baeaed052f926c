package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid exit configuration")

// Validate rejects degenerate settings at load time. The evaluators trust
// their configuration.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, reason string) {
		errs = append(errs, fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason))
	}
	negative := func(field string, v decimal.Decimal) {
		if v.IsNegative() {
			bad(field, "must not be negative")
		}
	}

	p := c.Pool
	if p.Enabled {
		if p.SecurePct.IsNegative() || p.SecurePct.GreaterThan(decimal.NewFromInt(1)) {
			bad("pool.secure_pct", "must be within [0,1]")
		}
		if !p.RunnerTrailPct.IsPositive() {
			bad("pool.runner_trail_pct", "must be positive")
		}
		if !p.SecureSlPct.IsPositive() {
			bad("pool.secure_sl_pct", "must be positive")
		}
		negative("pool.secure_tp_pct", p.SecureTpPct)
		negative("pool.runner_arm_pct", p.RunnerArmPct)
	}
	negative("pool.price_tick", p.PriceTick)
	negative("pool.qty_tick", p.QtyTick)
	negative("pool.min_order_notional", p.MinOrderNotional)

	l := c.Lot
	negative("lot.take_profit_pct", l.TakeProfitPct)
	negative("lot.stop_loss_pct", l.StopLossPct)
	negative("lot.epsilon_pnl_buffer_pct", l.EpsilonPnlBufferPct)
	negative("lot.trailing_stop_pct", l.TrailingStopPct)
	negative("lot.price_tick", l.PriceTick)
	negative("lot.qty_tick", l.QtyTick)
	negative("lot.min_order_notional", l.MinOrderNotional)
	if l.MinHoldPeriod < 0 {
		bad("lot.min_hold_period", "must not be negative")
	}
	if l.AutoCloseAfterHours != nil && !l.AutoCloseAfterHours.IsPositive() {
		bad("lot.auto_close_after_hours", "must be positive when set")
	}
	if l.MaxSellAmount != nil && !l.MaxSellAmount.IsPositive() {
		bad("lot.max_sell_amount", "must be positive when set")
	}
	if c.LockWait < 0 {
		bad("lock_wait", "must not be negative")
	}

	return errors.Join(errs...)
}
