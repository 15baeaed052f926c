package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/lots"
	"lotengine/src/model"
	"lotengine/src/pool"
	"lotengine/src/repository"
	"lotengine/src/symbol"
)

type tradeFinder interface {
	FindByScope(ctx context.Context, userID, strategyID, symbol string) ([]model.Trade, error)
}

// PositionResponse is the lot view of one scope.
type PositionResponse struct {
	Scope          model.Scope                  `json:"scope"`
	OpenLots       []model.OpenLot              `json:"open_lots"`
	ClosedLots     []model.ClosedLot            `json:"closed_lots"`
	Summary        *model.PooledPositionSummary `json:"summary,omitempty"`
	Reconciliation lots.ReconciliationReport    `json:"reconciliation"`
	Pool           *model.CoinPoolView          `json:"pool,omitempty"`
	Pnl            *model.PooledPnl             `json:"pnl,omitempty"`
}

// PositionsHandler reconstructs the lots of /positions/{userID}/{strategyID}/{symbol}.
// With ?price= the pooled view is priced as well.
func PositionsHandler(repo tradeFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := scopeFromPath(r)

		var price decimal.Decimal
		if raw := r.URL.Query().Get("price"); raw != "" {
			p, err := decimal.NewFromString(raw)
			if err != nil || !p.IsPositive() {
				writeError(w, http.StatusBadRequest, "invalid price")
				return
			}
			price = p
		}

		trades, err := repo.FindByScope(r.Context(), scope.UserID, scope.StrategyID, scope.Symbol)
		if err != nil {
			logger.WithError(err).WithField("scope", scope.Key()).Error("failed to load trades")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		rec, err := lots.Reconstruct(trades, scope.Symbol)
		if err != nil {
			var verr *lots.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusUnprocessableEntity, verr.Error())
				return
			}
			logger.WithError(err).WithField("scope", scope.Key()).Error("failed to reconstruct lots")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		resp := PositionResponse{
			Scope:          scope,
			OpenLots:       rec.OpenLots,
			ClosedLots:     rec.ClosedLots,
			Reconciliation: lots.ReconcileWith(rec, trades, scope.Symbol),
		}
		if resp.OpenLots == nil {
			resp.OpenLots = []model.OpenLot{}
		}
		if resp.ClosedLots == nil {
			resp.ClosedLots = []model.ClosedLot{}
		}
		if s, ok := pool.CalculatePooledSummary(rec.OpenLots)[symbol.Normalize(scope.Symbol)]; ok {
			resp.Summary = &s
		}
		if price.IsPositive() && len(rec.OpenLots) > 0 {
			view := pool.BuildCoinPoolView(rec.OpenLots, scope.Symbol, price)
			pnl := pool.CalculatePooledUnrealizedPnl(rec.OpenLots, price)
			resp.Pool = &view
			resp.Pnl = &pnl
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func scopeFromPath(r *http.Request) model.Scope {
	return model.Scope{
		UserID:     chi.URLParam(r, "userID"),
		StrategyID: chi.URLParam(r, "strategyID"),
		Symbol:     strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol"))),
	}
}

// DefaultPositionsHandler wires the handler to the production trade ledger.
func DefaultPositionsHandler() http.HandlerFunc {
	return PositionsHandler(repository.NewTradeRepository())
}
