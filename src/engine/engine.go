package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/exceptions"
	"lotengine/src/locker"
	"lotengine/src/lots"
	"lotengine/src/metrics"
	"lotengine/src/model"
	"lotengine/src/orders"
	"lotengine/src/tp_sl"
)

var (
	ErrInvalidPrice = errors.New("current price must be positive")
	// ErrLedgerDiscrepancy is returned when reconstruction reported discrepancies
	// and the engine is configured to halt on them. No orders are emitted.
	ErrLedgerDiscrepancy = errors.New("ledger discrepancies found, evaluation halted")
)

const service = "exit_engine"

// TradeLedger reads the append-only trade history of a scope.
type TradeLedger interface {
	FindByScope(ctx context.Context, userID, strategyID, symbol string) ([]model.Trade, error)
}

// PoolStateStore persists PoolState. Load returns nil, nil when the scope has no row.
type PoolStateStore interface {
	Load(ctx context.Context, scope model.Scope) (*model.PoolState, error)
	Upsert(ctx context.Context, state *model.PoolState) error
}

// DecisionSink receives the trace of every evaluation cycle.
type DecisionSink interface {
	Record(ctx context.Context, decision *model.ExitDecision) error
}

type Config struct {
	Pool model.PoolConfig
	Lot  model.LotExitConfig
	// HaltOnDiscrepancy makes a cycle emit nothing when the ledger does not
	// reconcile with its lots.
	HaltOnDiscrepancy bool
	// LockWait bounds how long a cycle waits for its scope lock. Zero waits
	// as long as the caller's context allows.
	LockWait time.Duration
}

// Result is the outcome of one evaluation cycle.
type Result struct {
	Scope         model.Scope
	Mode          string
	Reason        model.ExitReason
	Price         decimal.Decimal
	PnlPct        decimal.Decimal
	Orders        []model.SellOrder
	Rejected      []model.SellOrder
	Discrepancies []model.Discrepancy
	State         *model.PoolState
	Policy        model.ExitPolicy
	Note          string
}

// Engine runs exit evaluation cycles. Every cycle holds the scope lock from
// reading the ledger until the sell orders are handed back.
type Engine struct {
	cfg        Config
	ledger     TradeLedger
	states     PoolStateStore
	sink       DecisionSink
	locks      *locker.SymbolLocker
	exceptions exceptions.Recorder
	log        *logger.Entry
}

type Option func(*Engine)

// WithExceptionRecorder persists captured failures.
func WithExceptionRecorder(r exceptions.Recorder) Option {
	return func(e *Engine) { e.exceptions = r }
}

func WithLogger(log *logger.Entry) Option {
	return func(e *Engine) { e.log = log }
}

func New(cfg Config, ledger TradeLedger, states PoolStateStore, sink DecisionSink, locks *locker.SymbolLocker, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		ledger: ledger,
		states: states,
		sink:   sink,
		locks:  locks,
		log:    logger.WithField("component", "exit_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = NewLogSink(e.log)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// withScopeLock runs fn while holding the lock of scope.
func (e *Engine) withScopeLock(ctx context.Context, scope model.Scope, fn func(ctx context.Context) error) error {
	waitCtx := ctx
	if e.cfg.LockWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, e.cfg.LockWait)
		defer cancel()
	}

	start := time.Now()
	lease, err := e.locks.Acquire(waitCtx, scope.Key())
	metrics.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, locker.ErrLockTimeout) {
			metrics.IncLockTimeout()
		}
		e.log.WithField("scope", scope.Key()).WithError(err).Warn("Skipping evaluation, scope lock not acquired")
		return err
	}
	defer lease.Release()

	leaseCtx, cancel := lease.Context(ctx)
	defer cancel()
	return fn(leaseCtx)
}

// reconstruct reads the scope's ledger and rebuilds its lots.
func (e *Engine) reconstruct(ctx context.Context, scope model.Scope) (*lots.Reconstruction, error) {
	trades, err := e.ledger.FindByScope(ctx, scope.UserID, scope.StrategyID, scope.Symbol)
	if err != nil {
		metrics.IncCycleError("load_trades")
		return nil, fmt.Errorf("load trades for %s: %w", scope.Key(), err)
	}
	rec, err := lots.Reconstruct(trades, scope.Symbol)
	if err != nil {
		metrics.IncCycleError("reconstruct")
		exceptions.Capture(ctx, e.exceptions, service, "lots", "Reconstruct", exceptions.LevelError, err,
			map[string]interface{}{"scope": scope.Key(), "trades": len(trades)})
		return nil, fmt.Errorf("reconstruct lots for %s: %w", scope.Key(), err)
	}
	return rec, nil
}

// halt reports whether the cycle must stop on discrepancies and records the decision when it does.
func (e *Engine) halt(ctx context.Context, res *Result) bool {
	if len(res.Discrepancies) == 0 || !e.cfg.HaltOnDiscrepancy {
		return false
	}
	res.Note = fmt.Sprintf("halted on %d ledger discrepancies", len(res.Discrepancies))
	e.record(ctx, res)
	return true
}

// loadState returns the persisted state of scope, or a fresh one.
func (e *Engine) loadState(ctx context.Context, scope model.Scope) (*model.PoolState, error) {
	state, err := e.states.Load(ctx, scope)
	if err != nil {
		metrics.IncCycleError("load_state")
		exceptions.Capture(ctx, e.exceptions, service, "pool_state", "Load", exceptions.LevelError, err,
			map[string]interface{}{"scope": scope.Key()})
		return nil, fmt.Errorf("load pool state for %s: %w", scope.Key(), err)
	}
	if state == nil {
		state = model.NewPoolState(scope)
	}
	return state, nil
}

// saveState writes state when it differs from before. On failure, or when the
// scope lease expired and another cycle may own the scope, the cycle fails
// closed: no orders leave the engine.
func (e *Engine) saveState(ctx context.Context, res *Result, before model.PoolState, state *model.PoolState) error {
	if errors.Is(context.Cause(ctx), locker.ErrLeaseExpired) {
		metrics.IncCycleError("lease_expired")
		e.log.WithField("scope", res.Scope.Key()).Warn("Scope lock lease expired, pool state not persisted")
		res.Orders = nil
		res.Note = "scope lock lease expired, orders withheld"
		e.record(context.WithoutCancel(ctx), res)
		return fmt.Errorf("pool state for %s not persisted: %w", res.Scope.Key(), locker.ErrLeaseExpired)
	}
	if sameState(before, *state) {
		return nil
	}
	if err := e.states.Upsert(ctx, state); err != nil {
		metrics.IncCycleError("upsert_state")
		exceptions.Capture(ctx, e.exceptions, service, "pool_state", "Upsert", exceptions.LevelError, err,
			map[string]interface{}{"scope": res.Scope.Key(), "reason": string(res.Reason), "orders": len(res.Orders)})
		res.Orders = nil
		res.Note = "pool state not persisted, orders withheld"
		e.record(ctx, res)
		return fmt.Errorf("upsert pool state for %s: %w", res.Scope.Key(), err)
	}
	return nil
}

func sameState(a, b model.PoolState) bool {
	if !a.SecureFilledQty.Equal(b.SecureFilledQty) || a.IsArmed != b.IsArmed || !a.HighWaterPrice.Equal(b.HighWaterPrice) {
		return false
	}
	if (a.HighWaterAt == nil) != (b.HighWaterAt == nil) || (a.HighWaterAt != nil && !a.HighWaterAt.Equal(*b.HighWaterAt)) {
		return false
	}
	if (a.LastTrailingStopPrice == nil) != (b.LastTrailingStopPrice == nil) {
		return false
	}
	if a.LastTrailingStopPrice != nil && !a.LastTrailingStopPrice.Equal(*b.LastTrailingStopPrice) {
		return false
	}
	if len(a.LotHighWater) != len(b.LotHighWater) {
		return false
	}
	for id, peak := range a.LotHighWater {
		other, ok := b.LotHighWater[id]
		if !ok || !peak.Equal(other) {
			return false
		}
	}
	return true
}

// raiseHighWater moves the scope high-water mark to price when price is above it.
func raiseHighWater(state *model.PoolState, price decimal.Decimal, now time.Time) {
	if hw, moved := tp_sl.RaiseHighWater(state.HighWaterPrice, price); moved {
		state.HighWaterPrice = hw
		at := now
		state.HighWaterAt = &at
	}
}

// record hands the cycle trace to the sink. Sink failures are logged, they do
// not change the outcome of the cycle.
func (e *Engine) record(ctx context.Context, res *Result) {
	decision := &model.ExitDecision{
		UserID:        res.Scope.UserID,
		StrategyID:    res.Scope.StrategyID,
		Symbol:        res.Scope.Symbol,
		Mode:          res.Mode,
		Reason:        res.Reason,
		Price:         res.Price,
		PnlPct:        res.PnlPct,
		OrderCount:    len(res.Orders),
		Note:          res.Note,
		Discrepancies: res.Discrepancies,
	}
	if len(res.Orders) > 0 {
		decision.Quantity = orders.TotalAmount(res.Orders)
	}
	if policy, err := model.EncodePolicy(res.Policy); err == nil {
		decision.Policy = policy
	} else {
		e.log.WithError(err).Warn("Failed to encode exit policy")
	}

	metrics.AddRejectedOrders("min_notional", len(res.Rejected))
	if err := e.sink.Record(ctx, decision); err != nil {
		e.log.WithFields(logger.Fields{
			"scope":  res.Scope.Key(),
			"reason": res.Reason,
		}).WithError(err).Warn("Failed to record exit decision")
	}
}
