package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/engine"
	"lotengine/src/feeds"
	"lotengine/src/metrics"
	"lotengine/src/model"
)

// Evaluator runs one exit cycle for a scope.
type Evaluator interface {
	EvaluatePool(ctx context.Context, scope model.Scope, price decimal.Decimal, now time.Time) (*engine.Result, error)
	EvaluateLots(ctx context.Context, scope model.Scope, price decimal.Decimal, now time.Time) (*engine.Result, error)
}

// Runner evaluates every configured scope once per Run.
type Runner struct {
	evaluator    Evaluator
	feed         feeds.PriceFeed
	orders       OrderSink
	scopes       []ScopeSpec
	staleMax     time.Duration
	cycleTimeout time.Duration
	now          func() time.Time
	log          *logger.Entry
}

func NewRunner(config Config, evaluator Evaluator, feed feeds.PriceFeed, orders OrderSink, scopes []ScopeSpec) *Runner {
	return &Runner{
		evaluator:    evaluator,
		feed:         feed,
		orders:       orders,
		scopes:       scopes,
		staleMax:     config.PriceStaleMax,
		cycleTimeout: config.CycleTimeout,
		now:          time.Now,
		log:          logger.WithField("component", "executor"),
	}
}

// Run evaluates each scope in turn. A failing scope does not stop the others;
// the failures are joined into the returned error.
func (r *Runner) Run(ctx context.Context) error {
	var errs []error
	for _, spec := range r.scopes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.runScope(ctx, spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", spec.Scope.Key(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) runScope(ctx context.Context, spec ScopeSpec) error {
	if r.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cycleTimeout)
		defer cancel()
	}

	log := r.log.WithFields(logger.Fields{
		"user_id":     spec.Scope.UserID,
		"strategy_id": spec.Scope.StrategyID,
		"symbol":      spec.Scope.Symbol,
		"mode":        spec.Mode,
	})

	quote, err := r.feed.LastPrice(ctx, spec.Scope.Symbol)
	if err != nil {
		metrics.IncCycleError("price")
		log.WithError(err).Warn("Price unavailable, skipping cycle")
		return err
	}
	now := r.now()
	if err := feeds.CheckFresh(quote, now, r.staleMax); err != nil {
		metrics.IncCycleError("price")
		log.WithError(err).Warn("Rejecting quote, skipping cycle")
		return err
	}

	var res *engine.Result
	switch spec.Mode {
	case model.ModeFIFO:
		res, err = r.evaluator.EvaluateLots(ctx, spec.Scope, quote.Price, now)
	default:
		res, err = r.evaluator.EvaluatePool(ctx, spec.Scope, quote.Price, now)
	}
	if err != nil {
		metrics.IncCycleError("evaluate")
		log.WithError(err).Error("Exit evaluation failed")
		return err
	}
	if len(res.Orders) == 0 {
		return nil
	}

	if err := r.orders.Submit(ctx, spec.Scope, res.Orders, now); err != nil {
		metrics.IncCycleError("submit")
		log.WithError(err).WithField("orders", len(res.Orders)).Error("Order submission failed")
		return err
	}
	log.WithFields(logger.Fields{
		"reason": res.Reason,
		"orders": len(res.Orders),
		"price":  quote.Price.String(),
	}).Info("Sell orders submitted")
	return nil
}

// StartLoop runs the runner on schedule until ctx is cancelled. Overlapping
// runs are skipped.
func StartLoop(ctx context.Context, schedule string, runner *Runner) error {
	cronLog := cron.PrintfLogger(logger.StandardLogger())
	c := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))

	_, err := c.AddFunc(schedule, func() {
		logger.Debug("loop tick")
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("Evaluation run finished with errors")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.WithField("schedule", schedule).Info("Executor loop started")

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("loop stopped")
	return nil
}
