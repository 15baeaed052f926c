package executors

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"lotengine/src/engine"
	"lotengine/src/model"
)

type Config struct {
	Scopes            string        `envconfig:"SCOPES"` // user:strategy:BTC-EUR:pool,user:strategy:SOL-EUR:fifo
	Schedule          string        `envconfig:"EVAL_SCHEDULE" default:"@every 30s"`
	DryRun            bool          `envconfig:"DRY_RUN" default:"true"`
	PriceStaleMax     time.Duration `envconfig:"PRICE_STALE_MAX" default:"60s"`
	CycleTimeout      time.Duration `envconfig:"CYCLE_TIMEOUT" default:"20s"`
	LockWait          time.Duration `envconfig:"LOCK_WAIT" default:"5s"`
	LockLeaseTTL      time.Duration `envconfig:"LOCK_LEASE_TTL" default:"2m"`
	HaltOnDiscrepancy bool          `envconfig:"HALT_ON_DISCREPANCY" default:"true"`

	PoolEnabled          bool            `envconfig:"POOL_ENABLED" default:"true"`
	PoolSecurePct        decimal.Decimal `envconfig:"POOL_SECURE_PCT" default:"0.5"`
	PoolSecureTpPct      decimal.Decimal `envconfig:"POOL_SECURE_TP_PCT" default:"0.7"`
	PoolSecureSlPct      decimal.Decimal `envconfig:"POOL_SECURE_SL_PCT" default:"2"`
	PoolRunnerArmPct     decimal.Decimal `envconfig:"POOL_RUNNER_ARM_PCT" default:"2"`
	PoolRunnerTrailPct   decimal.Decimal `envconfig:"POOL_RUNNER_TRAIL_PCT" default:"1"`
	PoolPriceTick        decimal.Decimal `envconfig:"POOL_PRICE_TICK" default:"0"`
	PoolQtyTick          decimal.Decimal `envconfig:"POOL_QTY_TICK" default:"0"`
	PoolMinOrderNotional decimal.Decimal `envconfig:"POOL_MIN_ORDER_NOTIONAL" default:"0"`

	LotTakeProfitPct       decimal.Decimal `envconfig:"LOT_TAKE_PROFIT_PCT" default:"3"`
	LotStopLossPct         decimal.Decimal `envconfig:"LOT_STOP_LOSS_PCT" default:"2"`
	LotEpsilonPnlBufferPct decimal.Decimal `envconfig:"LOT_EPSILON_PNL_BUFFER_PCT" default:"0.1"`
	LotMinHoldPeriod       time.Duration   `envconfig:"LOT_MIN_HOLD_PERIOD" default:"0s"`
	LotAutoCloseAfterHours decimal.Decimal `envconfig:"LOT_AUTO_CLOSE_AFTER_HOURS" default:"0"` // 0 disables
	LotTrailingStopPct     decimal.Decimal `envconfig:"LOT_TRAILING_STOP_PCT" default:"0"`
	LotMaxSellAmount       decimal.Decimal `envconfig:"LOT_MAX_SELL_AMOUNT" default:"0"` // 0 means no cap
	LotPriceTick           decimal.Decimal `envconfig:"LOT_PRICE_TICK" default:"0"`
	LotQtyTick             decimal.Decimal `envconfig:"LOT_QTY_TICK" default:"0"`
	LotMinOrderNotional    decimal.Decimal `envconfig:"LOT_MIN_ORDER_NOTIONAL" default:"0"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// EngineConfig maps the env settings onto the engine configuration.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		Pool: model.PoolConfig{
			Enabled:          c.PoolEnabled,
			SecurePct:        c.PoolSecurePct,
			SecureTpPct:      c.PoolSecureTpPct,
			SecureSlPct:      c.PoolSecureSlPct,
			RunnerArmPct:     c.PoolRunnerArmPct,
			RunnerTrailPct:   c.PoolRunnerTrailPct,
			PriceTick:        c.PoolPriceTick,
			QtyTick:          c.PoolQtyTick,
			MinOrderNotional: c.PoolMinOrderNotional,
		},
		Lot: model.LotExitConfig{
			TakeProfitPct:       c.LotTakeProfitPct,
			StopLossPct:         c.LotStopLossPct,
			EpsilonPnlBufferPct: c.LotEpsilonPnlBufferPct,
			MinHoldPeriod:       c.LotMinHoldPeriod,
			AutoCloseAfterHours: positiveOrNil(c.LotAutoCloseAfterHours),
			TrailingStopPct:     c.LotTrailingStopPct,
			MaxSellAmount:       positiveOrNil(c.LotMaxSellAmount),
			PriceTick:           c.LotPriceTick,
			QtyTick:             c.LotQtyTick,
			MinOrderNotional:    c.LotMinOrderNotional,
		},
		HaltOnDiscrepancy: c.HaltOnDiscrepancy,
		LockWait:          c.LockWait,
	}
}

func positiveOrNil(d decimal.Decimal) *decimal.Decimal {
	if !d.IsPositive() {
		return nil
	}
	return &d
}

// ScopeSpec is one configured evaluation target.
type ScopeSpec struct {
	Scope model.Scope
	Mode  string
}

// ParseScopes reads "user:strategy:SYMBOL[:mode]" entries separated by
// commas. Mode defaults to pool.
func ParseScopes(raw string) ([]ScopeSpec, error) {
	var specs []ScopeSpec
	seen := make(map[string]bool)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid scope %q: want user:strategy:symbol[:mode]", entry)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid scope %q: empty field", entry)
		}

		mode := model.ModePool
		if len(parts) == 4 && parts[3] != "" {
			mode = strings.ToLower(parts[3])
		}
		if mode != model.ModePool && mode != model.ModeFIFO {
			return nil, fmt.Errorf("invalid scope %q: unknown mode %q", entry, mode)
		}

		spec := ScopeSpec{
			Scope: model.Scope{UserID: parts[0], StrategyID: parts[1], Symbol: strings.ToUpper(parts[2])},
			Mode:  mode,
		}
		if seen[spec.Scope.Key()] {
			return nil, fmt.Errorf("duplicate scope %q", entry)
		}
		seen[spec.Scope.Key()] = true
		specs = append(specs, spec)
	}
	return specs, nil
}
