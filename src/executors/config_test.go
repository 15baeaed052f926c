package executors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotengine/src/model"
)

func TestParseScopes(t *testing.T) {
	specs, err := ParseScopes(" u1:s1:btc-eur , u1:s1:SOL-EUR:FIFO,,u2:s9:XRP-EUR:pool ")
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, model.Scope{UserID: "u1", StrategyID: "s1", Symbol: "BTC-EUR"}, specs[0].Scope)
	assert.Equal(t, model.ModePool, specs[0].Mode, "mode defaults to pool")
	assert.Equal(t, model.ModeFIFO, specs[1].Mode)
	assert.Equal(t, "u2", specs[2].Scope.UserID)

	empty, err := ParseScopes("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseScopes_Invalid(t *testing.T) {
	for _, raw := range []string{
		"u1:s1",
		"u1::BTC-EUR",
		"u1:s1:BTC-EUR:lifo",
		"u1:s1:BTC-EUR:pool:extra",
		"u1:s1:BTC-EUR,u1:s1:btc-eur:fifo",
	} {
		_, err := ParseScopes(raw)
		assert.Error(t, err, raw)
	}
}

func TestGetConfig_Defaults(t *testing.T) {
	t.Setenv("SCOPES", "u1:s1:BTC-EUR")
	t.Setenv("LOT_MAX_SELL_AMOUNT", "2.5")

	config := GetConfig()
	assert.Equal(t, "@every 30s", config.Schedule)
	assert.True(t, config.DryRun)
	assert.True(t, config.HaltOnDiscrepancy)
	assert.Equal(t, 60*time.Second, config.PriceStaleMax)

	ec := config.EngineConfig()
	assert.NoError(t, ec.Validate())
	assert.True(t, ec.Pool.Enabled)
	assert.True(t, ec.Pool.SecurePct.Equal(d("0.5")))
	assert.True(t, ec.HaltOnDiscrepancy)
	assert.Equal(t, 5*time.Second, ec.LockWait)
	assert.Nil(t, ec.Lot.AutoCloseAfterHours, "zero disables auto-close")
	require.NotNil(t, ec.Lot.MaxSellAmount)
	assert.True(t, ec.Lot.MaxSellAmount.Equal(d("2.5")))
}

func TestGetConfig_PanicsOnMalformedEnv(t *testing.T) {
	t.Setenv("LOCK_WAIT", "soon")
	assert.Panics(t, func() { GetConfig() })
}
