package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lotengine/src/database"
	"lotengine/src/model"
)

// PoolStateRepository persists pool exit progress, one row per scope.
type PoolStateRepository struct {
	db *gorm.DB
}

func NewPoolStateRepository() *PoolStateRepository {
	logger.WithField("component", "PoolStateRepository").
		Info("Creating new PoolStateRepository with MainDB")

	return &PoolStateRepository{db: database.MainDB}
}

func (r *PoolStateRepository) WithDB(db *gorm.DB) *PoolStateRepository {
	return &PoolStateRepository{db: db}
}

// Load returns the state of scope. Returns (nil, nil) if the scope has none yet.
func (r *PoolStateRepository) Load(ctx context.Context, scope model.Scope) (*model.PoolState, error) {
	var state model.PoolState
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND strategy_id = ? AND symbol = ?", scope.UserID, scope.StrategyID, scope.Symbol).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":  "PoolStateRepository",
			"op":    "Load",
			"scope": scope.Key(),
		}).WithError(err).Error("Failed to load pool state")
		return nil, err
	}
	return &state, nil
}

// Upsert writes state, replacing the progress columns of an existing row for the same scope.
func (r *PoolStateRepository) Upsert(ctx context.Context, state *model.PoolState) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "strategy_id"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"secure_filled_qty",
			"is_armed",
			"high_water_price",
			"high_water_at",
			"last_trailing_stop_price",
			"lot_high_water",
			"updated_at",
		}),
	}).Create(state).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PoolStateRepository",
			"op":     "Upsert",
			"symbol": state.Symbol,
		}).WithError(err).Error("Failed to upsert pool state")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "PoolStateRepository",
		"op":          "Upsert",
		"user_id":     state.UserID,
		"strategy_id": state.StrategyID,
		"symbol":      state.Symbol,
		"secure_qty":  state.SecureFilledQty.String(),
		"armed":       state.IsArmed,
	}).Debug("Pool state saved")
	return nil
}
