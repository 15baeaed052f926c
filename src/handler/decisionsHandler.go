package handler

import (
	"context"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"lotengine/src/model"
	"lotengine/src/repository"
)

type decisionLister interface {
	ListRecent(ctx context.Context, scope model.Scope, limit int) ([]model.ExitDecision, error)
}

const maxDecisionLimit = 500

// DecisionsHandler lists the latest exit decisions of a scope, newest first.
func DecisionsHandler(repo decisionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := scopeFromPath(r)

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > maxDecisionLimit {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}

		rows, err := repo.ListRecent(r.Context(), scope, limit)
		if err != nil {
			logger.WithError(err).WithField("scope", scope.Key()).Error("failed to list exit decisions")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if rows == nil {
			rows = []model.ExitDecision{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// DefaultDecisionsHandler wires the handler to the production decision store.
func DefaultDecisionsHandler() http.HandlerFunc {
	return DecisionsHandler(repository.NewExitDecisionRepository())
}
