package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/allocation"
	"lotengine/src/model"
	"lotengine/src/ticks"
)

type ProRataRequest struct {
	FillQty decimal.Decimal   `json:"fill_qty"`
	QtyTick decimal.Decimal   `json:"qty_tick"`
	Trades  []model.FillShare `json:"trades"`
}

type ProRataResponse struct {
	Allocations []model.AllocationRecord `json:"allocations"`
	Allocated   decimal.Decimal          `json:"allocated"`
}

// ProRataHandler previews how an aggregate fill splits across its trades.
// Nothing is persisted.
func ProRataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload ProRataRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid pro-rata payload")
			writeError(w, http.StatusBadRequest, "Invalid payload")
			return
		}
		if payload.FillQty.IsNegative() {
			writeError(w, http.StatusBadRequest, "fill_qty must not be negative")
			return
		}

		records, err := allocation.AllocateFillProRata(payload.FillQty, payload.Trades, payload.QtyTick)
		if err != nil {
			if errors.Is(err, ticks.ErrInvalidTick) || errors.Is(err, allocation.ErrNoAllocatableTrades) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			logger.WithError(err).Error("pro-rata allocation failed")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		resp := ProRataResponse{Allocations: records, Allocated: decimal.Zero}
		for _, rec := range records {
			resp.Allocated = resp.Allocated.Add(rec.AllocatedQty)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
