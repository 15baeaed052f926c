package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpenLot is the unsold remainder of one BUY trade.
type OpenLot struct {
	LotID           string          `json:"lot_id"`
	Symbol          string          `json:"symbol"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	SoldAmount      decimal.Decimal `json:"sold_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	EntryPrice      decimal.Decimal `json:"entry_price"`
	EntryValue      decimal.Decimal `json:"entry_value"`
	EntryDate       time.Time       `json:"entry_date"`
}

// ClosedLot is the realized part of a lot consumed by one SELL.
type ClosedLot struct {
	LotID          string          `json:"lot_id"`
	SellTradeID    string          `json:"sell_trade_id"`
	Symbol         string          `json:"symbol"`
	Amount         decimal.Decimal `json:"amount"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	ExitPrice      decimal.Decimal `json:"exit_price"`
	EntryDate      time.Time       `json:"entry_date"`
	ExitDate       time.Time       `json:"exit_date"`
	RealizedPnl    decimal.Decimal `json:"realized_pnl"`
	RealizedPnlPct decimal.Decimal `json:"realized_pnl_pct"`
}

type DiscrepancyKind string

const (
	// DiscrepancyOversell: SELL volume that no open lot could absorb.
	DiscrepancyOversell DiscrepancyKind = "oversell"
	// DiscrepancyUnknownLot: SELL tagged with a lot id that is not a BUY of the same symbol.
	DiscrepancyUnknownLot DiscrepancyKind = "unknown_lot"
	// DiscrepancyLotOverflow: tagged SELL larger than what was left of its lot.
	DiscrepancyLotOverflow DiscrepancyKind = "lot_overflow"
)

// Discrepancy flags a gap between the ledger and the lots derived from it.
type Discrepancy struct {
	Kind               DiscrepancyKind `json:"kind"`
	Symbol             string          `json:"symbol"`
	SellTradeID        string          `json:"sell_trade_id"`
	LotID              string          `json:"lot_id,omitempty"`
	UnattributedAmount decimal.Decimal `json:"unattributed_amount"`
}
