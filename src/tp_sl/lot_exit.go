package tp_sl

import (
	"time"

	"github.com/shopspring/decimal"

	"lotengine/src/model"
	"lotengine/src/ticks"
)

// LotSnapshot is one lot priced at a moment in time.
type LotSnapshot struct {
	Lot          model.OpenLot
	CurrentPrice decimal.Decimal
	// HighWaterPrice is the best price seen since entry; zero means unknown
	// and falls back to max(entry, current).
	HighWaterPrice decimal.Decimal
}

// ExitSignal is the outcome of evaluating one lot or pool.
type ExitSignal struct {
	Reason model.ExitReason
	PnlPct decimal.Decimal
	Policy model.ExitPolicy
}

// Fires reports whether the signal asks for a sell.
func (s ExitSignal) Fires() bool {
	return s.Reason != model.ExitReasonNone && s.Reason != model.ExitReasonRunnerArmed
}

// LotPnlPct is (price − entry) / entry × 100.
func LotPnlPct(lot model.OpenLot, currentPrice decimal.Decimal) decimal.Decimal {
	return ticks.PctChange(lot.EntryPrice, currentPrice)
}

// StopLossHit fires at pnl <= -(slPct + epsilon). slPct <= 0 disables it.
func StopLossHit(pnlPct, slPct, epsilonPct decimal.Decimal) bool {
	if !slPct.IsPositive() {
		return false
	}
	return pnlPct.LessThanOrEqual(slPct.Add(epsilonPct).Neg())
}

// TakeProfitHit fires at pnl >= tpPct + epsilon. tpPct <= 0 disables it.
func TakeProfitHit(pnlPct, tpPct, epsilonPct decimal.Decimal) bool {
	if !tpPct.IsPositive() {
		return false
	}
	return pnlPct.GreaterThanOrEqual(tpPct.Add(epsilonPct))
}

// QualifiesForTakeProfit is the selective take-profit filter:
// pnl >= tpThresholdPct and the lot is at least minHold old.
func QualifiesForTakeProfit(lot model.OpenLot, currentPrice decimal.Decimal, now time.Time, tpThresholdPct decimal.Decimal, minHold time.Duration) bool {
	if now.Sub(lot.EntryDate) < minHold {
		return false
	}
	return LotPnlPct(lot, currentPrice).GreaterThanOrEqual(tpThresholdPct)
}

// AutoCloseDue is true once the position is at least afterHours old.
// A nil afterHours disables the check; it is not treated as zero.
func AutoCloseDue(entryDate, now time.Time, afterHours *decimal.Decimal) bool {
	if afterHours == nil {
		return false
	}
	held := decimal.NewFromInt(int64(now.Sub(entryDate))).Div(decimal.NewFromInt(int64(time.Hour)))
	return held.GreaterThanOrEqual(*afterHours)
}

// EvaluateLot picks the exit for one lot. When several conditions hold the
// order is auto-close, stop-loss, take-profit, trailing-stop.
func EvaluateLot(snap LotSnapshot, cfg model.LotExitConfig, now time.Time) ExitSignal {
	lot := snap.Lot
	pnlPct := LotPnlPct(lot, snap.CurrentPrice)
	sig := ExitSignal{Reason: model.ExitReasonNone, PnlPct: pnlPct}

	if AutoCloseDue(lot.EntryDate, now, cfg.AutoCloseAfterHours) {
		sig.Reason = model.ExitReasonAutoClose
		sig.Policy = model.AutoClosePolicy{AfterHours: *cfg.AutoCloseAfterHours}
		return sig
	}

	if StopLossHit(pnlPct, cfg.StopLossPct, cfg.EpsilonPnlBufferPct) {
		sig.Reason = model.ExitReasonStopLoss
		sig.Policy = model.StopLossPolicy{ThresholdPct: cfg.StopLossPct, EpsilonPct: cfg.EpsilonPnlBufferPct}
		return sig
	}

	if TakeProfitHit(pnlPct, cfg.TakeProfitPct, cfg.EpsilonPnlBufferPct) && now.Sub(lot.EntryDate) >= cfg.MinHoldPeriod {
		sig.Reason = model.ExitReasonTakeProfit
		sig.Policy = model.TakeProfitPolicy{
			ThresholdPct: cfg.TakeProfitPct,
			EpsilonPct:   cfg.EpsilonPnlBufferPct,
			MinHoldMs:    cfg.MinHoldPeriod.Milliseconds(),
		}
		return sig
	}

	if cfg.TrailingStopPct.IsPositive() {
		hw := snap.HighWaterPrice
		if hw.IsZero() {
			hw = decimal.Max(lot.EntryPrice, snap.CurrentPrice)
		}
		// only trail once the lot has been in profit
		if hw.GreaterThan(lot.EntryPrice) {
			stop := trailingStop(hw, cfg.TrailingStopPct, cfg.PriceTick)
			if ShouldTriggerTrailingStop(snap.CurrentPrice, &stop) {
				sig.Reason = model.ExitReasonTrailingStop
				sig.Policy = model.TrailingStopPolicy{TrailPct: cfg.TrailingStopPct, HighWaterPrice: hw, StopPrice: stop}
				return sig
			}
		}
	}

	return sig
}
