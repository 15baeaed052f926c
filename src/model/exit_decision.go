package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ModePool = "pool"
	ModeFIFO = "fifo"
)

// ExitDecision is the trace of one evaluation cycle for one scope.
type ExitDecision struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     string          `gorm:"size:64;not null;index:idx_exit_decisions_scope,priority:1" json:"user_id"`
	StrategyID string          `gorm:"size:64;not null;index:idx_exit_decisions_scope,priority:2" json:"strategy_id"`
	Symbol     string          `gorm:"size:30;not null;index:idx_exit_decisions_scope,priority:3" json:"symbol"`
	Mode       string          `gorm:"size:10;not null" json:"mode"`
	Reason     ExitReason      `gorm:"size:30;not null;index" json:"reason"`
	Price      decimal.Decimal `gorm:"type:numeric(38,18)" json:"price"`
	PnlPct     decimal.Decimal `gorm:"type:numeric(38,18)" json:"pnl_pct"`
	Quantity   decimal.Decimal `gorm:"type:numeric(38,18)" json:"quantity"`
	OrderCount int             `json:"order_count"`
	Note       string          `gorm:"type:text" json:"note,omitempty"`
	Policy     datatypes.JSON  `gorm:"type:jsonb" json:"policy,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`

	Discrepancies []Discrepancy `gorm:"-" json:"discrepancies,omitempty"`
}

func (ExitDecision) TableName() string {
	return "exit_decisions"
}
