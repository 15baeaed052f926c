package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/model"
	"lotengine/src/orders"
	"lotengine/src/pool"
	"lotengine/src/tp_sl"
)

// EvaluateLots runs one FIFO-mode cycle: every open lot is judged on its own.
// Auto-close, stop-loss and trailing-stop lots are sold in full; take-profit
// lots go through the selective builder, capped at MaxSellAmount.
func (e *Engine) EvaluateLots(ctx context.Context, scope model.Scope, price decimal.Decimal, now time.Time) (*Result, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	var res *Result
	err := e.withScopeLock(ctx, scope, func(ctx context.Context) error {
		var err error
		res, err = e.evaluateLots(ctx, scope, price, now)
		return err
	})
	return res, err
}

func (e *Engine) evaluateLots(ctx context.Context, scope model.Scope, price decimal.Decimal, now time.Time) (*Result, error) {
	res := &Result{Scope: scope, Mode: model.ModeFIFO, Reason: model.ExitReasonNone, Price: price}

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

	cfg := e.cfg.Lot
	res.PnlPct = pool.BuildCoinPoolView(rec.OpenLots, scope.Symbol, price).PoolPnlPct
	raiseHighWater(state, price, now)
	trackLotPeaks(state, rec.OpenLots, price)

	flush := make(map[model.ExitReason][]model.OpenLot)
	var tpLots []model.OpenLot
	best := tp_sl.ExitSignal{Reason: model.ExitReasonNone}
	for _, lot := range rec.OpenLots {
		sig := tp_sl.EvaluateLot(tp_sl.LotSnapshot{
			Lot:            lot,
			CurrentPrice:   price,
			HighWaterPrice: lotHighWater(state, lot),
		}, cfg, now)
		if !sig.Fires() {
			continue
		}
		if sig.Reason.Priority() < best.Reason.Priority() {
			best = sig
		}
		if sig.Reason == model.ExitReasonTakeProfit {
			tpLots = append(tpLots, lot)
			continue
		}
		flush[sig.Reason] = append(flush[sig.Reason], lot)
	}
	res.Reason = best.Reason
	res.Policy = best.Policy

	var built []model.SellOrder
	for _, reason := range sortedReasons(flush) {
		built = append(built, orders.BuildFullFlushSellOrders(flush[reason], price, reason)...)
	}
	if len(tpLots) > 0 {
		enriched := orders.Enrich(tpLots, price, now)
		built = append(built, orders.BuildSelectiveTpSellOrders(enriched, cfg.TakeProfitPct, cfg.MinHoldPeriod, cfg.MaxSellAmount, price)...)
	}

	// each lot is sold by its own order here, so the floor applies per order
	built = orders.QuantizeOrders(built, cfg.QtyTick)
	kept, rejected := orders.FilterMinNotional(built, cfg.MinOrderNotional)
	res.Orders = kept
	res.Rejected = rejected
	res.Note = fifoNote(flush, tpLots, rejected)

	if err := e.saveState(ctx, res, before, state); err != nil {
		return res, err
	}

	e.log.WithFields(logger.Fields{
		"scope":     scope.Key(),
		"reason":    res.Reason,
		"open_lots": len(rec.OpenLots),
		"orders":    len(res.Orders),
		"rejected":  len(res.Rejected),
	}).Debug("Lots evaluated")

	e.record(ctx, res)
	return res, nil
}

// trackLotPeaks raises the peak of every open lot to price and drops the
// peaks of lots that are closed. The map is replaced, never mutated, so the
// state loaded at the start of the cycle still compares as it was.
func trackLotPeaks(state *model.PoolState, open []model.OpenLot, price decimal.Decimal) {
	peaks := make(map[string]decimal.Decimal, len(open))
	for _, lot := range open {
		peak, _ := tp_sl.RaiseHighWater(state.LotHighWater[lot.LotID], price)
		peaks[lot.LotID] = peak
	}
	state.LotHighWater = peaks
}

// lotHighWater is the best price a lot has seen since entry. The scope
// high-water mark counts only for lots that were open when it was set.
func lotHighWater(state *model.PoolState, lot model.OpenLot) decimal.Decimal {
	peak := state.LotHighWater[lot.LotID]
	if state.HighWaterAt != nil && !lot.EntryDate.After(*state.HighWaterAt) {
		peak = decimal.Max(peak, state.HighWaterPrice)
	}
	return peak
}

func sortedReasons(flush map[model.ExitReason][]model.OpenLot) []model.ExitReason {
	reasons := make([]model.ExitReason, 0, len(flush))
	for r := range flush {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i].Priority() < reasons[j].Priority() })
	return reasons
}

func fifoNote(flush map[model.ExitReason][]model.OpenLot, tpLots []model.OpenLot, rejected []model.SellOrder) string {
	var parts []string
	for _, r := range sortedReasons(flush) {
		parts = append(parts, fmt.Sprintf("%s=%d", r, len(flush[r])))
	}
	if len(tpLots) > 0 {
		parts = append(parts, fmt.Sprintf("%s=%d", model.ExitReasonTakeProfit, len(tpLots)))
	}
	if len(rejected) > 0 {
		parts = append(parts, fmt.Sprintf("below_min_notional=%d", len(rejected)))
	}
	return strings.Join(parts, " ")
}
