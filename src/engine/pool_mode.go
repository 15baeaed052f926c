package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/model"
	"lotengine/src/orders"
	"lotengine/src/pool"
	"lotengine/src/ticks"
	"lotengine/src/tp_sl"
)

// EvaluatePool runs one pool-mode cycle for scope at price.
//
// Exits are checked in order: auto-close on the oldest lot, pool stop-loss,
// secure take-profit, trailing stop on the runner. Arming the runner only
// changes state. The state is persisted before any order is returned.
func (e *Engine) EvaluatePool(ctx context.Context, scope model.Scope, price decimal.Decimal, now time.Time) (*Result, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	var res *Result
	err := e.withScopeLock(ctx, scope, func(ctx context.Context) error {
		var err error
		res, err = e.evaluatePool(ctx, scope, price, now)
		return err
	})
	return res, err
}

func (e *Engine) evaluatePool(ctx context.Context, scope model.Scope, price decimal.Decimal, now time.Time) (*Result, error) {
	res := &Result{Scope: scope, Mode: model.ModePool, Reason: model.ExitReasonNone, Price: price}

	rec, err := e.reconstruct(ctx, scope)
	if err != nil {
		return res, err
	}
	res.Discrepancies = rec.Discrepancies
	if e.halt(ctx, res) {
		return res, ErrLedgerDiscrepancy
	}

	state, err := e.loadState(ctx, scope)
	if err != nil {
		return res, err
	}
	before := *state
	res.State = state

	if len(rec.OpenLots) == 0 {
		state.Reset()
		if err := e.saveState(ctx, res, before, state); err != nil {
			return res, err
		}
		e.record(ctx, res)
		return res, nil
	}

	cfg := e.cfg.Pool
	view := pool.BuildCoinPoolView(rec.OpenLots, scope.Symbol, price)
	res.PnlPct = view.PoolPnlPct

	if !cfg.Enabled {
		e.log.WithField("scope", scope.Key()).Debug("Pool management disabled, nothing to evaluate")
		e.record(ctx, res)
		return res, nil
	}

	raiseHighWater(state, price, now)
	if state.IsArmed {
		stop, _ := tp_sl.RatchetStop(state.LastTrailingStopPrice, tp_sl.NextTrailingStop(state.HighWaterPrice, cfg, cfg.PriceTick))
		state.LastTrailingStopPrice = &stop
	}

	var built []model.SellOrder
	switch {
	case tp_sl.AutoCloseDue(view.OldestEntryDate, now, e.cfg.Lot.AutoCloseAfterHours):
		res.Reason = model.ExitReasonAutoClose
		res.Policy = model.AutoClosePolicy{AfterHours: *e.cfg.Lot.AutoCloseAfterHours}
		built = orders.BuildFullFlushSellOrders(rec.OpenLots, price, res.Reason)

	case tp_sl.PoolStopLossHit(view, cfg):
		res.Reason = model.ExitReasonStopLoss
		res.Policy = model.StopLossPolicy{ThresholdPct: cfg.SecureSlPct}
		built = orders.BuildFullFlushSellOrders(rec.OpenLots, price, res.Reason)

	case tp_sl.ShouldTriggerSecure(view, cfg, state.SecureFilledQty):
		res.Reason = model.ExitReasonSecureTakeProfit
		res.Policy = model.SecurePolicy{SecurePct: cfg.SecurePct, SecureTpPct: cfg.SecureTpPct, SecureFilledQty: state.SecureFilledQty}
		qty := tp_sl.SecureQuantity(view, cfg, state.SecureFilledQty)
		built = orders.BuildSellOrdersForLots(rec.OpenLots, qty, price, res.Reason)

	case state.IsArmed && tp_sl.ShouldTriggerTrailingStop(price, state.LastTrailingStopPrice):
		res.Reason = model.ExitReasonTrailingStop
		res.Policy = model.TrailingStopPolicy{TrailPct: cfg.RunnerTrailPct, HighWaterPrice: state.HighWaterPrice, StopPrice: *state.LastTrailingStopPrice}
		built = orders.BuildFullFlushSellOrders(rec.OpenLots, price, res.Reason)
	}

	// one exchange order per cycle; lot slices only attribute it
	fired := len(built) > 0
	built = orders.QuantizeOrders(built, cfg.QtyTick)
	switch {
	case fired && len(built) == 0:
		res.Note = "nothing left to sell after tick rounding"
	case len(built) > 0 && !ticks.MeetsMinNotional(orders.TotalAmount(built), price, cfg.MinOrderNotional):
		res.Rejected = built
		res.Note = "below min order notional"
		built = nil
	}
	res.Orders = built

	switch {
	case len(res.Orders) > 0 && res.Reason.ClosesPosition():
		state.Reset()
	case len(res.Orders) > 0 && res.Reason == model.ExitReasonSecureTakeProfit:
		state.SecureFilledQty = state.SecureFilledQty.Add(orders.TotalAmount(res.Orders))
	}

	if !res.Reason.ClosesPosition() && tp_sl.ShouldArmRunner(view, cfg, state.IsArmed) {
		state.IsArmed = true
		stop, _ := tp_sl.RatchetStop(state.LastTrailingStopPrice, tp_sl.NextTrailingStop(state.HighWaterPrice, cfg, cfg.PriceTick))
		state.LastTrailingStopPrice = &stop
		if res.Reason == model.ExitReasonNone {
			res.Reason = model.ExitReasonRunnerArmed
			res.Policy = model.TrailingStopPolicy{TrailPct: cfg.RunnerTrailPct, HighWaterPrice: state.HighWaterPrice, StopPrice: stop}
		}
	}

	if err := e.saveState(ctx, res, before, state); err != nil {
		return res, err
	}

	e.log.WithFields(logger.Fields{
		"scope":    scope.Key(),
		"reason":   res.Reason,
		"pnl_pct":  view.PoolPnlPct.StringFixed(4),
		"orders":   len(res.Orders),
		"rejected": len(res.Rejected),
		"armed":    state.IsArmed,
	}).Debug("Pool evaluated")

	e.record(ctx, res)
	return res, nil
}
