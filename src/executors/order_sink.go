package executors

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"lotengine/src/model"
)

// OrderSink takes the sell orders of a cycle. Implementations own delivery.
type OrderSink interface {
	Submit(ctx context.Context, scope model.Scope, orders []model.SellOrder, at time.Time) error
}

type TradeWriter interface {
	Create(ctx context.Context, trade *model.Trade) error
}

// PaperSink fills every order at its limit price by appending a SELL to the
// ledger, tagged with the lot it closes, so the next cycle sees it.
type PaperSink struct {
	trades TradeWriter
}

func NewPaperSink(trades TradeWriter) *PaperSink {
	return &PaperSink{trades: trades}
}

func (s *PaperSink) Submit(ctx context.Context, scope model.Scope, orders []model.SellOrder, at time.Time) error {
	for i, o := range orders {
		trade := &model.Trade{
			UserID:     scope.UserID,
			StrategyID: scope.StrategyID,
			TradeType:  model.TradeTypeSell,
			Symbol:     scope.Symbol,
			Amount:     o.Amount,
			Price:      o.Price,
			TotalValue: o.Notional(),
			ExecutedAt: at,
		}
		if o.LotID != "" {
			lotID := o.LotID
			trade.OriginalTradeID = &lotID
		}
		if err := s.trades.Create(ctx, trade); err != nil {
			return fmt.Errorf("paper fill %d/%d for lot %s: %w", i+1, len(orders), o.LotID, err)
		}
		logger.WithFields(logger.Fields{
			"trade_id": trade.ID,
			"lot_id":   o.LotID,
			"amount":   o.Amount.String(),
			"price":    o.Price.String(),
			"reason":   o.Reason,
		}).Info("Paper fill recorded")
	}
	return nil
}

// LogSink only reports order intents. It is used when DRY_RUN is off and
// delivery is left to an external submitter reading the logs.
type LogSink struct {
	log *logger.Entry
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.WithField("component", "order_sink")}
}

func (s *LogSink) Submit(_ context.Context, scope model.Scope, orders []model.SellOrder, _ time.Time) error {
	for _, o := range orders {
		s.log.WithFields(logger.Fields{
			"scope":  scope.Key(),
			"lot_id": o.LotID,
			"amount": o.Amount.String(),
			"price":  o.Price.String(),
			"reason": o.Reason,
		}).Info("Sell order intent")
	}
	return nil
}
