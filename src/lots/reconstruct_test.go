package lots

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotengine/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func buy(id, sym, amount, price string, at time.Duration) model.Trade {
	return model.Trade{
		ID:         id,
		UserID:     "u1",
		StrategyID: "s1",
		TradeType:  model.TradeTypeBuy,
		Symbol:     sym,
		Amount:     d(amount),
		Price:      d(price),
		TotalValue: d(amount).Mul(d(price)),
		ExecutedAt: t0.Add(at),
	}
}

func sell(id, sym, amount, price string, at time.Duration) model.Trade {
	t := buy(id, sym, amount, price, at)
	t.TradeType = model.TradeTypeSell
	return t
}

func sellOf(id, lotID, sym, amount, price string, at time.Duration) model.Trade {
	t := sell(id, sym, amount, price, at)
	t.OriginalTradeID = &lotID
	return t
}

func remainingOf(lots []model.OpenLot) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, l := range lots {
		out[l.LotID] = l.RemainingAmount
	}
	return out
}

func TestReconstruct_NoSells(t *testing.T) {
	trades := []model.Trade{
		buy("b2", "XRP-EUR", "600", "0.5", 2*time.Hour),
		buy("b1", "XRP-EUR", "400", "0.5", time.Hour),
	}

	open, err := ReconstructOpenLots(trades, "")
	require.NoError(t, err)
	require.Len(t, open, 2)

	assert.Equal(t, "b1", open[0].LotID, "oldest lot first")
	assert.Equal(t, "XRP", open[0].Symbol)
	assert.True(t, open[0].EntryValue.Equal(d("200")))
	assert.True(t, open[1].RemainingAmount.Equal(d("600")))
}

func TestReconstruct_FIFOSplitsSellAcrossLots(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "BTC-EUR", "1", "100", 0),
		buy("b2", "BTC-EUR", "2", "200", time.Hour),
		sell("s1", "BTC-EUR", "1.5", "300", 2*time.Hour),
	}

	rec, err := Reconstruct(trades, "BTC")
	require.NoError(t, err)
	require.Len(t, rec.OpenLots, 1)
	assert.Equal(t, "b2", rec.OpenLots[0].LotID)
	assert.True(t, rec.OpenLots[0].RemainingAmount.Equal(d("1.5")))
	assert.True(t, rec.OpenLots[0].SoldAmount.Equal(d("0.5")))

	require.Len(t, rec.ClosedLots, 2)
	assert.Equal(t, "b1", rec.ClosedLots[0].LotID)
	assert.True(t, rec.ClosedLots[0].Amount.Equal(d("1")))
	assert.True(t, rec.ClosedLots[0].RealizedPnl.Equal(d("200")))
	assert.True(t, rec.ClosedLots[0].RealizedPnlPct.Equal(d("200")))
	assert.Equal(t, "b2", rec.ClosedLots[1].LotID)
	assert.True(t, rec.ClosedLots[1].RealizedPnl.Equal(d("50")))
	assert.Empty(t, rec.Discrepancies)
}

func TestReconstruct_TaggedSellClosesNamedLot(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "ETH-EUR", "1", "1000", 0),
		buy("b2", "ETH-EUR", "1", "1100", time.Hour),
		sellOf("s1", "b2", "ETH-EUR", "1", "1200", 2*time.Hour),
	}

	open, err := ReconstructOpenLots(trades, "ETH-EUR")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "b1", open[0].LotID, "tagged sell must not touch the oldest lot")
}

func TestReconstruct_TaggedOverflowSpillsToFIFO(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "ETH-EUR", "1", "1000", 0),
		buy("b2", "ETH-EUR", "1", "1100", time.Hour),
		sellOf("s1", "b2", "ETH-EUR", "1.25", "1200", 2*time.Hour),
	}

	rec, err := Reconstruct(trades, "")
	require.NoError(t, err)
	require.Len(t, rec.OpenLots, 1)
	assert.Equal(t, "b1", rec.OpenLots[0].LotID)
	assert.True(t, rec.OpenLots[0].RemainingAmount.Equal(d("0.75")))

	require.Len(t, rec.Discrepancies, 1)
	assert.Equal(t, model.DiscrepancyLotOverflow, rec.Discrepancies[0].Kind)
	assert.True(t, rec.Discrepancies[0].UnattributedAmount.Equal(d("0.25")))
}

func TestReconstruct_UnknownLotFallsBackToFIFO(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "SOL-EUR", "10", "100", 0),
		sellOf("s1", "missing", "SOL-EUR", "4", "120", time.Hour),
	}

	rec, err := Reconstruct(trades, "")
	require.NoError(t, err)
	require.Len(t, rec.OpenLots, 1)
	assert.True(t, rec.OpenLots[0].RemainingAmount.Equal(d("6")))
	require.Len(t, rec.Discrepancies, 1)
	assert.Equal(t, model.DiscrepancyUnknownLot, rec.Discrepancies[0].Kind)
	assert.Equal(t, "missing", rec.Discrepancies[0].LotID)
}

func TestReconstruct_OversellIsFlagged(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "XRP-EUR", "1000", "0.5", 0),
		sell("s1", "XRP-EUR", "300", "0.55", time.Hour),
		sell("s2", "XRP-EUR", "800", "0.6", 2*time.Hour),
	}

	rec, err := Reconstruct(trades, "XRP")
	require.NoError(t, err)
	assert.Empty(t, rec.OpenLots)
	require.Len(t, rec.Discrepancies, 1)

	disc := rec.Discrepancies[0]
	assert.Equal(t, model.DiscrepancyOversell, disc.Kind)
	assert.Equal(t, "s2", disc.SellTradeID)
	assert.True(t, disc.UnattributedAmount.Equal(d("100")), "got %s", disc.UnattributedAmount)

	report := ReconcileWith(rec, trades, "XRP")
	assert.False(t, report.Balanced)
	assert.True(t, report.NetPosition.Equal(d("-100")))
	assert.True(t, report.Oversold.Equal(d("100")))
}

func TestReconstruct_SymbolFilterAndNotations(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "BTC-EUR", "1", "100", 0),
		buy("b2", "btc/usdt", "1", "110", time.Hour),
		buy("e1", "ETH-EUR", "5", "10", time.Hour),
		sell("s1", "BTCEUR", "1.5", "120", 2*time.Hour),
	}

	open, err := ReconstructOpenLots(trades, "btc")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "b2", open[0].LotID)
	assert.True(t, open[0].RemainingAmount.Equal(d("0.5")))

	all, err := ReconstructOpenLots(trades, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReconstruct_DustLotIsClosed(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "BTC-EUR", "1", "100", 0),
		sell("s1", "BTC-EUR", "0.999999995", "100", time.Hour),
	}

	open, err := ReconstructOpenLots(trades, "")
	require.NoError(t, err)
	assert.Empty(t, open, "remaining 5e-9 is below the closure epsilon")
}

func TestReconstruct_Validation(t *testing.T) {
	bad := buy("b1", "BTC-EUR", "0", "100", 0)
	_, err := Reconstruct([]model.Trade{bad}, "")
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount", vErr.Field)

	unknown := buy("b2", "BTC-EUR", "1", "100", 0)
	unknown.TradeType = "HOLD"
	_, err = Reconstruct([]model.Trade{unknown}, "")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "trade_type", vErr.Field)

	dup := []model.Trade{buy("b3", "BTC-EUR", "1", "1", 0), buy("b3", "BTC-EUR", "1", "1", 0)}
	_, err = Reconstruct(dup, "")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "id", vErr.Field)
}

func TestReconstruct_NetPositionIdentityIsOrderIndependent(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "XRP-EUR", "400", "0.50", 0),
		buy("b2", "XRP-EUR", "600", "0.52", time.Hour),
		sell("s1", "XRP-EUR", "250", "0.55", 2*time.Hour),
		buy("b3", "XRP-EUR", "100.5", "0.49", 3*time.Hour),
		sellOf("s2", "b2", "XRP-EUR", "300", "0.56", 4*time.Hour),
		sell("s3", "XRP-EUR", "120.25", "0.51", 5*time.Hour),
		buy("x1", "ADA-EUR", "50", "0.3", time.Hour),
		sell("x2", "ADA-EUR", "20", "0.35", 2*time.Hour),
	}

	baseline, err := ReconstructOpenLots(trades, "")
	require.NoError(t, err)
	want := remainingOf(baseline)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := make([]model.Trade, len(trades))
		copy(shuffled, trades)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		for _, sym := range []string{"XRP", "ADA"} {
			open, err := ReconstructOpenLots(shuffled, sym)
			require.NoError(t, err)

			sum := decimal.Zero
			for _, l := range open {
				assert.False(t, l.RemainingAmount.IsNegative())
				sum = sum.Add(l.RemainingAmount)
				assert.True(t, l.RemainingAmount.Equal(want[l.LotID]), "lot %s drifted under shuffle", l.LotID)
			}
			net := CalculateNetPositionFromTrades(shuffled, sym)
			assert.True(t, sum.Equal(net), "sym=%s sum=%s net=%s", sym, sum, net)
		}
	}
}

func TestReconcile_Balanced(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "XRP-EUR", "400", "0.5", 0),
		buy("b2", "XRP-EUR", "600", "0.5", time.Hour),
		sell("s1", "XRP-EUR", "500", "0.6", 2*time.Hour),
	}

	report, err := Reconcile(trades, "XRP-EUR")
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Equal(t, "XRP", report.Symbol)
	assert.True(t, report.OpenQuantity.Equal(d("500")))
	assert.True(t, report.NetPosition.Equal(d("500")))
}

func TestCalculateNetPositionFromTrades(t *testing.T) {
	trades := []model.Trade{
		buy("b1", "BTC-EUR", "2", "100", 0),
		sell("s1", "BTC-EUR", "0.5", "100", time.Hour),
		buy("e1", "ETH-EUR", "9", "100", 0),
	}
	assert.True(t, CalculateNetPositionFromTrades(trades, "BTC").Equal(d("1.5")))
	assert.True(t, CalculateNetPositionFromTrades(trades, "ETH-EUR").Equal(d("9")))
	assert.True(t, CalculateNetPositionFromTrades(trades, "DOGE").IsZero())
}
