package allocation

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"lotengine/src/model"
	"lotengine/src/ticks"
)

var ErrNoAllocatableTrades = errors.New("no trades with positive amount to allocate against")

type share struct {
	idx       int
	allocated decimal.Decimal
	capacity  decimal.Decimal
	fraction  decimal.Decimal
}

// AllocateFillProRata attributes one aggregate fill back to the trades that
// contributed to it, proportionally to their amounts.
//
// Each raw share fillQty × amount / Σamount is floored to qtyTick. The ticks
// lost to flooring are handed out one at a time, largest fractional remainder
// first (ties keep input order), never above a trade's own amount. The target
// is fillQty rounded to the nearest tick, capped at Σamount.
func AllocateFillProRata(fillQty decimal.Decimal, openTrades []model.FillShare, qtyTick decimal.Decimal) ([]model.AllocationRecord, error) {
	if !qtyTick.IsPositive() {
		return nil, ticks.ErrInvalidTick
	}

	total := decimal.Zero
	for _, t := range openTrades {
		if t.Amount.IsPositive() {
			total = total.Add(t.Amount)
		}
	}
	if !total.IsPositive() {
		return nil, ErrNoAllocatableTrades
	}

	target := ticks.RoundToNearestTick(fillQty, qtyTick)
	if capQty := ticks.RoundToTick(total, qtyTick); target.GreaterThan(capQty) {
		target = capQty
	}
	if target.IsNegative() {
		target = decimal.Zero
	}

	shares := make([]*share, len(openTrades))
	allocated := decimal.Zero
	for i, t := range openTrades {
		s := &share{idx: i, allocated: decimal.Zero, capacity: decimal.Zero, fraction: decimal.Zero}
		shares[i] = s
		if !t.Amount.IsPositive() {
			continue
		}
		s.capacity = ticks.RoundToTick(t.Amount, qtyTick)

		raw := target.Mul(t.Amount).Div(total)
		floored := decimal.Min(ticks.RoundToTick(raw, qtyTick), s.capacity)
		s.allocated = floored
		s.fraction = raw.Sub(floored).Div(qtyTick)
		allocated = allocated.Add(floored)
	}

	shortfall := target.Sub(allocated).Div(qtyTick).Round(0).IntPart()
	if shortfall > 0 {
		order := make([]*share, len(shares))
		copy(order, shares)
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].fraction.GreaterThan(order[j].fraction)
		})

		for shortfall > 0 {
			progressed := false
			for _, s := range order {
				if shortfall == 0 {
					break
				}
				if s.allocated.Add(qtyTick).GreaterThan(s.capacity) {
					continue
				}
				s.allocated = s.allocated.Add(qtyTick)
				shortfall--
				progressed = true
			}
			if !progressed {
				break
			}
		}
	}

	out := make([]model.AllocationRecord, len(openTrades))
	for i, t := range openTrades {
		remaining := t.Amount.Sub(shares[i].allocated)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		out[i] = model.AllocationRecord{
			TradeID:      t.TradeID,
			AllocatedQty: shares[i].allocated,
			RemainingQty: remaining,
		}
	}
	return out, nil
}
