package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"lotengine/src/lots"
	"lotengine/src/model"
)

type Ledger interface {
	FindByScope(ctx context.Context, userID, strategyID, symbol string) ([]model.Trade, error)
	ListScopes(ctx context.Context) ([]model.Scope, error)
}

type scopeReport struct {
	Scope  model.Scope               `json:"scope"`
	Report lots.ReconciliationReport `json:"report"`
}

// Reconcile checks every scope of the ledger (or only the given ones) and
// writes one JSON report per line to out. It fails when any scope is
// unbalanced.
type Reconcile struct {
	Ledger Ledger
	Out    io.Writer
	Log    *logrus.Entry
}

func (r *Reconcile) Start(ctx context.Context, only []model.Scope) error {
	scopes := only
	if len(scopes) == 0 {
		var err error
		if scopes, err = r.Ledger.ListScopes(ctx); err != nil {
			return fmt.Errorf("list scopes: %w", err)
		}
	}

	enc := json.NewEncoder(r.Out)
	unbalanced := 0
	for _, scope := range scopes {
		trades, err := r.Ledger.FindByScope(ctx, scope.UserID, scope.StrategyID, scope.Symbol)
		if err != nil {
			return fmt.Errorf("load trades for %s: %w", scope.Key(), err)
		}
		report, err := lots.Reconcile(trades, scope.Symbol)
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", scope.Key(), err)
		}
		if !report.Balanced {
			unbalanced++
			r.Log.WithFields(logrus.Fields{
				"scope":         scope.Key(),
				"net_position":  report.NetPosition.String(),
				"open_quantity": report.OpenQuantity.String(),
				"oversold":      report.Oversold.String(),
				"discrepancies": len(report.Discrepancies),
			}).Warn("Scope does not reconcile")
		}
		if err := enc.Encode(scopeReport{Scope: scope, Report: report}); err != nil {
			return err
		}
	}

	r.Log.WithFields(logrus.Fields{"scopes": len(scopes), "unbalanced": unbalanced}).Info("Reconciliation finished")
	if unbalanced > 0 {
		return fmt.Errorf("%d of %d scopes unbalanced", unbalanced, len(scopes))
	}
	return nil
}
