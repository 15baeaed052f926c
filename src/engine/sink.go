package engine

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"

	"lotengine/src/metrics"
	"lotengine/src/model"
)

// LogSink writes decisions to logger. Cycles that did nothing are logged at debug.
type LogSink struct {
	log *logger.Entry
}

func NewLogSink(log *logger.Entry) *LogSink {
	if log == nil {
		log = logger.WithField("component", "exit_decisions")
	}
	return &LogSink{log: log}
}

func (s *LogSink) Record(_ context.Context, d *model.ExitDecision) error {
	entry := s.log.WithFields(logger.Fields{
		"user_id":     d.UserID,
		"strategy_id": d.StrategyID,
		"symbol":      d.Symbol,
		"mode":        d.Mode,
		"reason":      d.Reason,
		"price":       d.Price.String(),
		"pnl_pct":     d.PnlPct.StringFixed(4),
		"orders":      d.OrderCount,
	})
	if d.Note != "" {
		entry = entry.WithField("note", d.Note)
	}

	for _, disc := range d.Discrepancies {
		entry.WithFields(logger.Fields{
			"kind":          disc.Kind,
			"sell_trade_id": disc.SellTradeID,
			"lot_id":        disc.LotID,
			"unattributed":  disc.UnattributedAmount.String(),
		}).Warn("Ledger discrepancy")
	}

	if d.OrderCount > 0 {
		entry.WithField("quantity", d.Quantity.String()).Info("Exit decided")
		return nil
	}
	entry.Debug("No exit this cycle")
	return nil
}

// MetricsSink counts decisions, orders and discrepancies in prometheus.
type MetricsSink struct{}

func (MetricsSink) Record(_ context.Context, d *model.ExitDecision) error {
	metrics.IncExitDecision(d.Mode, string(d.Reason))
	metrics.AddSellOrders(string(d.Reason), d.OrderCount)
	for _, disc := range d.Discrepancies {
		metrics.IncDiscrepancy(string(disc.Kind))
	}
	return nil
}

// DecisionStore persists decisions. repository.ExitDecisionRepository implements it.
type DecisionStore interface {
	Create(ctx context.Context, decision *model.ExitDecision) error
}

// StoreSink persists every decision that did something: sold, armed,
// rejected or halted. Idle cycles are not stored.
type StoreSink struct {
	store DecisionStore
}

func NewStoreSink(store DecisionStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Record(ctx context.Context, d *model.ExitDecision) error {
	if d.Reason == model.ExitReasonNone && d.Note == "" && len(d.Discrepancies) == 0 {
		return nil
	}
	return s.store.Create(ctx, d)
}

// MultiSink fans a decision out to every sink and joins their errors.
type MultiSink []DecisionSink

func (m MultiSink) Record(ctx context.Context, d *model.ExitDecision) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
