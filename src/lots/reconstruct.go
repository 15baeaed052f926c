package lots

import (
	"sort"

	"github.com/shopspring/decimal"

	"lotengine/src/model"
	"lotengine/src/symbol"
	"lotengine/src/ticks"
)

// Reconstruction is everything derived from one pass over a ledger.
type Reconstruction struct {
	OpenLots      []model.OpenLot     `json:"open_lots"`
	ClosedLots    []model.ClosedLot   `json:"closed_lots"`
	Discrepancies []model.Discrepancy `json:"discrepancies,omitempty"`
}

type lotState struct {
	buy       model.Trade
	symbol    string
	remaining decimal.Decimal
	sold      decimal.Decimal
}

type reconstructor struct {
	bySymbol map[string][]*lotState
	byID     map[string]*lotState
	out      *Reconstruction
}

// sortTrades orders a copy of the ledger by execution time, then id,
// so the result does not depend on the input order.
func sortTrades(trades []model.Trade) []model.Trade {
	sorted := make([]model.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ExecutedAt.Equal(sorted[j].ExecutedAt) {
			return sorted[i].ExecutedAt.Before(sorted[j].ExecutedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// Reconstruct rebuilds open lots, realized closes and discrepancies from the
// ledger. symbolFilter, when not empty, restricts the work to one base symbol
// in any pair notation.
//
// Tagged SELLs are applied to their lot first. Untagged SELLs, and whatever a
// tagged SELL could not place on its own lot, are then applied in execution
// order to the oldest lot with capacity, splitting across lots as needed.
func Reconstruct(trades []model.Trade, symbolFilter string) (*Reconstruction, error) {
	if err := ValidateTrades(trades); err != nil {
		return nil, err
	}

	filter := symbol.Normalize(symbolFilter)
	sorted := sortTrades(trades)

	r := &reconstructor{
		bySymbol: make(map[string][]*lotState),
		byID:     make(map[string]*lotState),
		out:      &Reconstruction{},
	}

	var sells []model.Trade
	for _, t := range sorted {
		sym := symbol.Normalize(t.Symbol)
		if filter != "" && sym != filter {
			continue
		}
		if t.IsBuy() {
			lot := &lotState{buy: t, symbol: sym, remaining: t.Amount, sold: decimal.Zero}
			r.bySymbol[sym] = append(r.bySymbol[sym], lot)
			r.byID[t.ID] = lot
			continue
		}
		sells = append(sells, t)
	}

	// tagged pass
	residual := make(map[string]decimal.Decimal)
	for _, s := range sells {
		if s.OriginalTradeID == nil || *s.OriginalTradeID == "" {
			continue
		}
		residual[s.ID] = r.applyTagged(s)
	}

	// FIFO pass
	for _, s := range sells {
		amount := s.Amount
		if rest, tagged := residual[s.ID]; tagged {
			amount = rest
		}
		if ticks.IsDust(amount) {
			continue
		}
		r.applyFIFO(s, amount)
	}

	r.out.OpenLots = r.openLots()
	return r.out, nil
}

// applyTagged consumes s from the lot it names and returns what is left for FIFO.
func (r *reconstructor) applyTagged(s model.Trade) decimal.Decimal {
	sym := symbol.Normalize(s.Symbol)
	lotID := *s.OriginalTradeID

	lot, ok := r.byID[lotID]
	if !ok || lot.symbol != sym {
		r.out.Discrepancies = append(r.out.Discrepancies, model.Discrepancy{
			Kind:               model.DiscrepancyUnknownLot,
			Symbol:             sym,
			SellTradeID:        s.ID,
			LotID:              lotID,
			UnattributedAmount: s.Amount,
		})
		return s.Amount
	}

	take := decimal.Min(s.Amount, lot.remaining)
	r.consume(lot, s, take)

	rest := s.Amount.Sub(take)
	if !ticks.IsDust(rest) {
		r.out.Discrepancies = append(r.out.Discrepancies, model.Discrepancy{
			Kind:               model.DiscrepancyLotOverflow,
			Symbol:             sym,
			SellTradeID:        s.ID,
			LotID:              lotID,
			UnattributedAmount: rest,
		})
		return rest
	}
	return decimal.Zero
}

func (r *reconstructor) applyFIFO(s model.Trade, amount decimal.Decimal) {
	sym := symbol.Normalize(s.Symbol)
	left := amount

	for _, lot := range r.bySymbol[sym] {
		if ticks.IsDust(left) {
			break
		}
		if ticks.IsDust(lot.remaining) {
			continue
		}
		take := decimal.Min(left, lot.remaining)
		r.consume(lot, s, take)
		left = left.Sub(take)
	}

	if !ticks.IsDust(left) {
		r.out.Discrepancies = append(r.out.Discrepancies, model.Discrepancy{
			Kind:               model.DiscrepancyOversell,
			Symbol:             sym,
			SellTradeID:        s.ID,
			UnattributedAmount: left,
		})
	}
}

func (r *reconstructor) consume(lot *lotState, sell model.Trade, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	lot.remaining = lot.remaining.Sub(amount)
	lot.sold = lot.sold.Add(amount)

	pnl := sell.Price.Sub(lot.buy.Price).Mul(amount)
	r.out.ClosedLots = append(r.out.ClosedLots, model.ClosedLot{
		LotID:          lot.buy.ID,
		SellTradeID:    sell.ID,
		Symbol:         lot.symbol,
		Amount:         amount,
		EntryPrice:     lot.buy.Price,
		ExitPrice:      sell.Price,
		EntryDate:      lot.buy.ExecutedAt,
		ExitDate:       sell.ExecutedAt,
		RealizedPnl:    ticks.RoundMoney(pnl),
		RealizedPnlPct: ticks.PctChange(lot.buy.Price, sell.Price).Round(2),
	})
}

func (r *reconstructor) openLots() []model.OpenLot {
	var open []model.OpenLot
	for _, lots := range r.bySymbol {
		for _, lot := range lots {
			if ticks.IsDust(lot.remaining) {
				continue
			}
			open = append(open, model.OpenLot{
				LotID:           lot.buy.ID,
				Symbol:          lot.symbol,
				OriginalAmount:  lot.buy.Amount,
				SoldAmount:      lot.sold,
				RemainingAmount: lot.remaining,
				EntryPrice:      lot.buy.Price,
				EntryValue:      lot.remaining.Mul(lot.buy.Price),
				EntryDate:       lot.buy.ExecutedAt,
			})
		}
	}
	SortFIFO(open)
	return open
}

// SortFIFO orders lots oldest first; ties are broken by lot id.
func SortFIFO(lots []model.OpenLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].EntryDate.Equal(lots[j].EntryDate) {
			return lots[i].EntryDate.Before(lots[j].EntryDate)
		}
		return lots[i].LotID < lots[j].LotID
	})
}

// ReconstructOpenLots returns the open lots of the ledger in FIFO order.
func ReconstructOpenLots(trades []model.Trade, symbolFilter string) ([]model.OpenLot, error) {
	rec, err := Reconstruct(trades, symbolFilter)
	if err != nil {
		return nil, err
	}
	return rec.OpenLots, nil
}
