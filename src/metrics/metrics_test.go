package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncExitDecision(t *testing.T) {
	before := testutil.ToFloat64(exitDecisions.WithLabelValues("pool", "stop_loss"))
	IncExitDecision("pool", "stop_loss")
	IncExitDecision("pool", "stop_loss")
	assert.Equal(t, before+2, testutil.ToFloat64(exitDecisions.WithLabelValues("pool", "stop_loss")))
}

func TestAddSellOrders_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(sellOrders.WithLabelValues("take_profit"))
	AddSellOrders("take_profit", 0)
	AddSellOrders("take_profit", -3)
	AddSellOrders("take_profit", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(sellOrders.WithLabelValues("take_profit")))
}

func TestLockMetrics(t *testing.T) {
	before := testutil.ToFloat64(lockTimeouts)
	IncLockTimeout()
	assert.Equal(t, before+1, testutil.ToFloat64(lockTimeouts))

	ObserveLockWait(20 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(lockWait))
}
