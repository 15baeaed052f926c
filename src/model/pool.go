package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PooledPositionSummary is the weighted-average view over the open lots of one symbol.
type PooledPositionSummary struct {
	Symbol               string          `json:"symbol"`
	TotalRemainingAmount decimal.Decimal `json:"total_remaining_amount"`
	TotalEntryValue      decimal.Decimal `json:"total_entry_value"`
	AverageEntryPrice    decimal.Decimal `json:"average_entry_price"`
	LotCount             int             `json:"lot_count"`
	OldestEntryDate      time.Time       `json:"oldest_entry_date"`
	NewestEntryDate      time.Time       `json:"newest_entry_date"`
}

type PooledPnl struct {
	UnrealizedPnl     decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnlPct  decimal.Decimal `json:"unrealized_pnl_pct"`
	TotalEntryValue   decimal.Decimal `json:"total_entry_value"`
	TotalCurrentValue decimal.Decimal `json:"total_current_value"`
}

// CoinPoolView is a pooled summary priced at CurrentPrice.
type CoinPoolView struct {
	Symbol            string          `json:"symbol"`
	TotalQty          decimal.Decimal `json:"total_qty"`
	AverageEntryPrice decimal.Decimal `json:"average_entry_price"`
	TotalCostBasis    decimal.Decimal `json:"total_cost_basis"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	PoolPnl           decimal.Decimal `json:"pool_pnl"`
	PoolPnlPct        decimal.Decimal `json:"pool_pnl_pct"`
	LotCount          int             `json:"lot_count"`
	OldestEntryDate   time.Time       `json:"oldest_entry_date"`
}

// PoolConfig drives pool-level exit management. Percentages are in percent
// units except SecurePct, which is a fraction of the pool in [0,1].
type PoolConfig struct {
	Enabled          bool            `json:"enabled"`
	SecurePct        decimal.Decimal `json:"secure_pct"`
	SecureTpPct      decimal.Decimal `json:"secure_tp_pct"`
	SecureSlPct      decimal.Decimal `json:"secure_sl_pct"`
	RunnerArmPct     decimal.Decimal `json:"runner_arm_pct"`
	RunnerTrailPct   decimal.Decimal `json:"runner_trail_pct"`
	PriceTick        decimal.Decimal `json:"price_tick"`
	QtyTick          decimal.Decimal `json:"qty_tick"`
	MinOrderNotional decimal.Decimal `json:"min_order_notional"`
}

// PoolState is the mutable progress of exit management for one scope.
// HighWaterAt is when HighWaterPrice was last raised; lots entered before it
// have seen that peak. LotHighWater holds the peak each open lot has seen
// itself, keyed by lot id, and is only kept in FIFO mode.
type PoolState struct {
	ID                    uint                       `gorm:"primaryKey" json:"id"`
	UserID                string                     `gorm:"size:64;not null;uniqueIndex:ux_pool_states_scope,priority:1" json:"user_id"`
	StrategyID            string                     `gorm:"size:64;not null;uniqueIndex:ux_pool_states_scope,priority:2" json:"strategy_id"`
	Symbol                string                     `gorm:"size:30;not null;uniqueIndex:ux_pool_states_scope,priority:3" json:"symbol"`
	SecureFilledQty       decimal.Decimal            `gorm:"type:numeric(38,18);not null;default:0" json:"secure_filled_qty"`
	IsArmed               bool                       `gorm:"not null;default:false" json:"is_armed"`
	HighWaterPrice        decimal.Decimal            `gorm:"type:numeric(38,18);not null;default:0" json:"high_water_price"`
	HighWaterAt           *time.Time                 `json:"high_water_at,omitempty"`
	LastTrailingStopPrice *decimal.Decimal           `gorm:"type:numeric(38,18)" json:"last_trailing_stop_price,omitempty"`
	LotHighWater          map[string]decimal.Decimal `gorm:"type:jsonb;serializer:json" json:"lot_high_water,omitempty"`
	CreatedAt             time.Time                  `json:"created_at"`
	UpdatedAt             time.Time                  `json:"updated_at"`
}

func (PoolState) TableName() string {
	return "pool_states"
}

// NewPoolState returns the zero progress state of a scope.
func NewPoolState(scope Scope) *PoolState {
	return &PoolState{
		UserID:     scope.UserID,
		StrategyID: scope.StrategyID,
		Symbol:     scope.Symbol,
	}
}

// Reset clears progress, keeping identity.
func (s *PoolState) Reset() {
	s.SecureFilledQty = decimal.Zero
	s.IsArmed = false
	s.HighWaterPrice = decimal.Zero
	s.HighWaterAt = nil
	s.LastTrailingStopPrice = nil
	s.LotHighWater = nil
}

// IsZero reports whether the state carries no progress.
func (s PoolState) IsZero() bool {
	return s.SecureFilledQty.IsZero() && !s.IsArmed && s.HighWaterPrice.IsZero() &&
		s.LastTrailingStopPrice == nil && len(s.LotHighWater) == 0
}
