package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lotengine/src/database"
	"lotengine/src/model"
	"lotengine/src/symbol"
)

// TradeRepository reads and appends to the trade ledger. Rows are never updated.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main read/write database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Info("Creating new TradeRepository with MainDB")

	return &TradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create appends a trade to the ledger.
func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "TradeRepository",
		"op":     "Create",
		"symbol": trade.Symbol,
		"type":   trade.TradeType,
		"amount": trade.Amount.String(),
	}).Debug("Appending trade")

	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to append trade")
		return err
	}
	return nil
}

// FindByScope returns every trade of the user and strategy on the base symbol
// of sym, whatever pair notation it was stored under, oldest first.
func (r *TradeRepository) FindByScope(ctx context.Context, userID, strategyID, sym string) ([]model.Trade, error) {
	base := symbol.Normalize(sym)

	logger.WithFields(map[string]interface{}{
		"repo":        "TradeRepository",
		"op":          "FindByScope",
		"user_id":     userID,
		"strategy_id": strategyID,
		"symbol":      base,
	}).Debug("Fetching scope trades")

	var rows []model.Trade
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND strategy_id = ? AND symbol LIKE ?", userID, strategyID, base+"%").
		Order("executed_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindByScope",
		}).WithError(err).Error("Failed to fetch scope trades")
		return nil, err
	}

	// the prefix also matches longer bases ("ETH" vs "ETHW")
	out := rows[:0]
	for _, t := range rows {
		if symbol.Normalize(t.Symbol) == base {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListScopes returns the distinct (user, strategy, symbol) tuples in the ledger.
func (r *TradeRepository) ListScopes(ctx context.Context) ([]model.Scope, error) {
	var scopes []model.Scope
	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Distinct("user_id", "strategy_id", "symbol").
		Order("user_id, strategy_id, symbol").
		Scan(&scopes).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "ListScopes",
		}).WithError(err).Error("Failed to list scopes")
		return nil, err
	}
	return scopes, nil
}
