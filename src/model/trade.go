package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
)

// Trade is one immutable row of the append-only trade ledger.
// A SELL may carry OriginalTradeID to name the BUY lot it closes;
// untagged SELLs are attributed to lots FIFO.
type Trade struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string          `gorm:"size:64;not null;index:idx_trades_scope,priority:1" json:"user_id"`
	StrategyID      string          `gorm:"size:64;not null;index:idx_trades_scope,priority:2" json:"strategy_id"`
	TradeType       string          `gorm:"size:4;not null" json:"trade_type"`
	Symbol          string          `gorm:"size:30;not null;index:idx_trades_scope,priority:3" json:"symbol"`
	Amount          decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"amount"`
	Price           decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"price"`
	TotalValue      decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"total_value"`
	ExecutedAt      time.Time       `gorm:"not null;index" json:"executed_at"`
	OriginalTradeID *string         `gorm:"type:varchar(36);index" json:"original_trade_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}

// BeforeCreate assigns an id, upper-cases the symbol and derives TotalValue
// when the caller left it empty.
func (t *Trade) BeforeCreate(_ *gorm.DB) error {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.TotalValue.IsZero() {
		t.TotalValue = t.Amount.Mul(t.Price)
	}
	return nil
}

func (t Trade) IsBuy() bool  { return t.TradeType == TradeTypeBuy }
func (t Trade) IsSell() bool { return t.TradeType == TradeTypeSell }

// Scope identifies the (user, strategy, symbol) tuple a ledger slice and a
// pool state belong to.
type Scope struct {
	UserID     string `json:"user_id"`
	StrategyID string `json:"strategy_id"`
	Symbol     string `json:"symbol"`
}

// Key is the lock key of the scope.
func (s Scope) Key() string {
	return s.UserID + "|" + s.StrategyID + "|" + s.Symbol
}
