package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lotengine/src/lots"
	"lotengine/src/model"
	"lotengine/src/ticks"
)

func newOrder(lot model.OpenLot, amount, price decimal.Decimal, reason model.ExitReason) model.SellOrder {
	return model.SellOrder{
		ID:         uuid.NewString(),
		LotID:      lot.LotID,
		Symbol:     lot.Symbol,
		Amount:     amount,
		EntryPrice: lot.EntryPrice,
		EntryValue: amount.Mul(lot.EntryPrice),
		Price:      price,
		Reason:     reason,
	}
}

// BuildSellOrdersForLots walks lots in the given order and takes
// min(left, lot.RemainingAmount) from each until amountToSell is used up.
// Asking for more than the lots hold sells everything available; the caller
// checks the request against the net position.
func BuildSellOrdersForLots(openLots []model.OpenLot, amountToSell, currentPrice decimal.Decimal, reason model.ExitReason) []model.SellOrder {
	var out []model.SellOrder
	left := amountToSell

	for _, lot := range openLots {
		if !left.IsPositive() || ticks.IsDust(left) {
			break
		}
		if !lot.RemainingAmount.IsPositive() {
			continue
		}
		take := decimal.Min(left, lot.RemainingAmount)
		out = append(out, newOrder(lot, take, currentPrice, reason))
		left = left.Sub(take)
	}
	return out
}

// BuildFullFlushSellOrders closes every lot for its full remaining amount, oldest first.
func BuildFullFlushSellOrders(openLots []model.OpenLot, currentPrice decimal.Decimal, reason model.ExitReason) []model.SellOrder {
	sorted := make([]model.OpenLot, len(openLots))
	copy(sorted, openLots)
	lots.SortFIFO(sorted)

	out := make([]model.SellOrder, 0, len(sorted))
	for _, lot := range sorted {
		if !lot.RemainingAmount.IsPositive() {
			continue
		}
		out = append(out, newOrder(lot, lot.RemainingAmount, currentPrice, reason))
	}
	return out
}

// EnrichedLot is an open lot with its P&L and age at evaluation time.
type EnrichedLot struct {
	model.OpenLot
	PnlPct decimal.Decimal
	Age    time.Duration
}

// Enrich prices lots at currentPrice as of now.
func Enrich(openLots []model.OpenLot, currentPrice decimal.Decimal, now time.Time) []EnrichedLot {
	out := make([]EnrichedLot, 0, len(openLots))
	for _, lot := range openLots {
		out = append(out, EnrichedLot{
			OpenLot: lot,
			PnlPct:  ticks.PctChange(lot.EntryPrice, currentPrice),
			Age:     now.Sub(lot.EntryDate),
		})
	}
	return out
}

// BuildSelectiveTpSellOrders sells only lots with PnlPct >= tpThresholdPct and
// Age >= minHold, oldest first, optionally capped at maxAmount.
func BuildSelectiveTpSellOrders(enriched []EnrichedLot, tpThresholdPct decimal.Decimal, minHold time.Duration, maxAmount *decimal.Decimal, currentPrice decimal.Decimal) []model.SellOrder {
	var qualifying []model.OpenLot
	total := decimal.Zero
	for _, e := range enriched {
		if e.PnlPct.LessThan(tpThresholdPct) || e.Age < minHold {
			continue
		}
		qualifying = append(qualifying, e.OpenLot)
		total = total.Add(e.RemainingAmount)
	}
	if len(qualifying) == 0 {
		return nil
	}
	lots.SortFIFO(qualifying)

	amount := total
	if maxAmount != nil && maxAmount.LessThan(amount) {
		amount = *maxAmount
	}
	return BuildSellOrdersForLots(qualifying, amount, currentPrice, model.ExitReasonTakeProfit)
}

// QuantizeOrders floors every amount to the quantity tick and drops orders
// that round to zero.
func QuantizeOrders(orders []model.SellOrder, qtyTick decimal.Decimal) []model.SellOrder {
	out := make([]model.SellOrder, 0, len(orders))
	for _, o := range orders {
		amount := ticks.RoundToTick(o.Amount, qtyTick)
		if !amount.IsPositive() {
			continue
		}
		o.Amount = amount
		o.EntryValue = amount.Mul(o.EntryPrice)
		out = append(out, o)
	}
	return out
}

// FilterMinNotional splits orders into those worth at least minNotional at
// their price and those that must not be submitted.
func FilterMinNotional(orders []model.SellOrder, minNotional decimal.Decimal) (kept, rejected []model.SellOrder) {
	for _, o := range orders {
		if ticks.MeetsMinNotional(o.Amount, o.Price, minNotional) {
			kept = append(kept, o)
			continue
		}
		rejected = append(rejected, o)
	}
	return kept, rejected
}

// TotalAmount sums order amounts.
func TotalAmount(orders []model.SellOrder) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.Amount)
	}
	return sum
}
