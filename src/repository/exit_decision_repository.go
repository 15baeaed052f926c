package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lotengine/src/database"
	"lotengine/src/model"
)

// ExitDecisionRepository stores the trace of evaluation cycles.
type ExitDecisionRepository struct {
	db *gorm.DB
}

func NewExitDecisionRepository() *ExitDecisionRepository {
	return &ExitDecisionRepository{db: database.MainDB}
}

func (r *ExitDecisionRepository) WithDB(db *gorm.DB) *ExitDecisionRepository {
	return &ExitDecisionRepository{db: db}
}

func (r *ExitDecisionRepository) Create(ctx context.Context, decision *model.ExitDecision) error {
	if err := r.db.WithContext(ctx).Create(decision).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "ExitDecisionRepository",
			"op":     "Create",
			"symbol": decision.Symbol,
			"reason": decision.Reason,
		}).WithError(err).Error("Failed to store exit decision")
		return err
	}
	return nil
}

// ListRecent returns the latest decisions of scope, newest first.
func (r *ExitDecisionRepository) ListRecent(ctx context.Context, scope model.Scope, limit int) ([]model.ExitDecision, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []model.ExitDecision
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND strategy_id = ? AND symbol = ?", scope.UserID, scope.StrategyID, scope.Symbol).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "ExitDecisionRepository",
			"op":    "ListRecent",
			"scope": scope.Key(),
		}).WithError(err).Error("Failed to list exit decisions")
		return nil, err
	}
	return rows, nil
}
