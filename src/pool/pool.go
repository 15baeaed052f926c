package pool

import (
	"github.com/shopspring/decimal"

	"lotengine/src/model"
	"lotengine/src/symbol"
	"lotengine/src/ticks"
)

// CalculatePooledSummary collapses open lots into one weighted-average view per symbol.
func CalculatePooledSummary(openLots []model.OpenLot) map[string]model.PooledPositionSummary {
	out := make(map[string]model.PooledPositionSummary)
	for _, lot := range openLots {
		s, ok := out[lot.Symbol]
		if !ok {
			s = model.PooledPositionSummary{
				Symbol:               lot.Symbol,
				TotalRemainingAmount: decimal.Zero,
				TotalEntryValue:      decimal.Zero,
				OldestEntryDate:      lot.EntryDate,
				NewestEntryDate:      lot.EntryDate,
			}
		}
		s.TotalRemainingAmount = s.TotalRemainingAmount.Add(lot.RemainingAmount)
		s.TotalEntryValue = s.TotalEntryValue.Add(lot.RemainingAmount.Mul(lot.EntryPrice))
		s.LotCount++
		if lot.EntryDate.Before(s.OldestEntryDate) {
			s.OldestEntryDate = lot.EntryDate
		}
		if lot.EntryDate.After(s.NewestEntryDate) {
			s.NewestEntryDate = lot.EntryDate
		}
		out[lot.Symbol] = s
	}

	for sym, s := range out {
		if s.TotalRemainingAmount.IsPositive() {
			s.AverageEntryPrice = s.TotalEntryValue.Div(s.TotalRemainingAmount)
		}
		out[sym] = s
	}
	return out
}

// CalculatePooledUnrealizedPnl prices the open lots at currentPrice.
// Monetary outputs are rounded to cents.
func CalculatePooledUnrealizedPnl(openLots []model.OpenLot, currentPrice decimal.Decimal) model.PooledPnl {
	entry := decimal.Zero
	current := decimal.Zero
	for _, lot := range openLots {
		entry = entry.Add(lot.RemainingAmount.Mul(lot.EntryPrice))
		current = current.Add(lot.RemainingAmount.Mul(currentPrice))
	}

	pnl := current.Sub(entry)
	pct := decimal.Zero
	if entry.IsPositive() {
		pct = pnl.Div(entry).Mul(ticks.Hundred())
	}

	return model.PooledPnl{
		UnrealizedPnl:     ticks.RoundMoney(pnl),
		UnrealizedPnlPct:  ticks.RoundMoney(pct),
		TotalEntryValue:   ticks.RoundMoney(entry),
		TotalCurrentValue: ticks.RoundMoney(current),
	}
}

// BuildCoinPoolView prices the pool of one symbol. Values are kept unrounded
// so exit thresholds compare against exact figures.
func BuildCoinPoolView(openLots []model.OpenLot, sym string, currentPrice decimal.Decimal) model.CoinPoolView {
	target := symbol.Normalize(sym)

	var mine []model.OpenLot
	for _, lot := range openLots {
		if lot.Symbol == target {
			mine = append(mine, lot)
		}
	}

	view := model.CoinPoolView{
		Symbol:            target,
		TotalQty:          decimal.Zero,
		AverageEntryPrice: decimal.Zero,
		TotalCostBasis:    decimal.Zero,
		CurrentPrice:      currentPrice,
		CurrentValue:      decimal.Zero,
		PoolPnl:           decimal.Zero,
		PoolPnlPct:        decimal.Zero,
	}

	s, ok := CalculatePooledSummary(mine)[target]
	if !ok {
		return view
	}

	view.TotalQty = s.TotalRemainingAmount
	view.AverageEntryPrice = s.AverageEntryPrice
	view.TotalCostBasis = s.TotalEntryValue
	view.CurrentValue = s.TotalRemainingAmount.Mul(currentPrice)
	view.PoolPnl = view.CurrentValue.Sub(view.TotalCostBasis)
	if view.TotalCostBasis.IsPositive() {
		view.PoolPnlPct = view.PoolPnl.Div(view.TotalCostBasis).Mul(ticks.Hundred())
	}
	view.LotCount = s.LotCount
	view.OldestEntryDate = s.OldestEntryDate
	return view
}
