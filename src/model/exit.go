package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExitReason string

const (
	ExitReasonNone             ExitReason = "none"
	ExitReasonAutoClose        ExitReason = "auto_close"
	ExitReasonStopLoss         ExitReason = "stop_loss"
	ExitReasonTakeProfit       ExitReason = "take_profit"
	ExitReasonSecureTakeProfit ExitReason = "secure_take_profit"
	ExitReasonTrailingStop     ExitReason = "trailing_stop"
	ExitReasonRunnerArmed      ExitReason = "runner_armed"
)

// exitPriority ranks reasons when several fire for the same lot or pool.
// Lower wins: time and loss protection come before profit taking.
var exitPriority = map[ExitReason]int{
	ExitReasonAutoClose:        0,
	ExitReasonStopLoss:         1,
	ExitReasonTakeProfit:       2,
	ExitReasonSecureTakeProfit: 2,
	ExitReasonTrailingStop:     3,
	ExitReasonRunnerArmed:      4,
	ExitReasonNone:             5,
}

// Priority returns the rank of the reason, lower first.
func (r ExitReason) Priority() int {
	if p, ok := exitPriority[r]; ok {
		return p
	}
	return exitPriority[ExitReasonNone]
}

// ClosesPosition reports whether the reason liquidates everything it applies to.
func (r ExitReason) ClosesPosition() bool {
	return r == ExitReasonAutoClose || r == ExitReasonStopLoss || r == ExitReasonTrailingStop
}

// LotExitConfig drives per-lot (FIFO mode) exit management.
type LotExitConfig struct {
	TakeProfitPct       decimal.Decimal  `json:"take_profit_pct"`
	StopLossPct         decimal.Decimal  `json:"stop_loss_pct"`
	EpsilonPnlBufferPct decimal.Decimal  `json:"epsilon_pnl_buffer_pct"`
	MinHoldPeriod       time.Duration    `json:"min_hold_period"`
	AutoCloseAfterHours *decimal.Decimal `json:"auto_close_after_hours,omitempty"`
	TrailingStopPct     decimal.Decimal  `json:"trailing_stop_pct"`
	MaxSellAmount       *decimal.Decimal `json:"max_sell_amount,omitempty"`
	PriceTick           decimal.Decimal  `json:"price_tick"`
	QtyTick             decimal.Decimal  `json:"qty_tick"`
	MinOrderNotional    decimal.Decimal  `json:"min_order_notional"`
}

// SellOrder is a close intent for one lot. It is not persisted by the engine.
type SellOrder struct {
	ID         string          `json:"id"`
	LotID      string          `json:"lot_id"`
	Symbol     string          `json:"symbol"`
	Amount     decimal.Decimal `json:"amount"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryValue decimal.Decimal `json:"entry_value"`
	Price      decimal.Decimal `json:"price"`
	Reason     ExitReason      `json:"reason"`
}

// Notional is Amount × Price.
func (o SellOrder) Notional() decimal.Decimal {
	return o.Amount.Mul(o.Price)
}

// FillShare is one contributing trade of an aggregate fill.
type FillShare struct {
	TradeID string          `json:"trade_id"`
	Amount  decimal.Decimal `json:"amount"`
}

type AllocationRecord struct {
	TradeID      string          `json:"trade_id"`
	AllocatedQty decimal.Decimal `json:"allocated_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
}
