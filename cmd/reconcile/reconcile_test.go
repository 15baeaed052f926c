package reconcile

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotengine/src/model"
)

type fakeLedger struct {
	trades map[string][]model.Trade
	scopes []model.Scope
}

func (f *fakeLedger) FindByScope(_ context.Context, _, strategyID, _ string) ([]model.Trade, error) {
	return f.trades[strategyID], nil
}

func (f *fakeLedger) ListScopes(_ context.Context) ([]model.Scope, error) {
	return f.scopes, nil
}

func tr(id, typ, amount string, at time.Duration) model.Trade {
	amt := decimal.RequireFromString(amount)
	return model.Trade{
		ID: id, UserID: "u1", StrategyID: "s1", TradeType: typ, Symbol: "BTC-EUR",
		Amount: amt, Price: decimal.NewFromInt(100), TotalValue: amt.Mul(decimal.NewFromInt(100)),
		ExecutedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(at),
	}
}

func TestReconcile_ReportsEveryScope(t *testing.T) {
	ledger := &fakeLedger{
		scopes: []model.Scope{
			{UserID: "u1", StrategyID: "ok", Symbol: "BTC-EUR"},
			{UserID: "u1", StrategyID: "bad", Symbol: "BTC-EUR"},
		},
		trades: map[string][]model.Trade{
			"ok":  {tr("b1", model.TradeTypeBuy, "1", 0), tr("s1", model.TradeTypeSell, "0.4", time.Hour)},
			"bad": {tr("b2", model.TradeTypeBuy, "1", 0), tr("s2", model.TradeTypeSell, "1.5", time.Hour)},
		},
	}
	log, hook := logrustest.NewNullLogger()
	var out bytes.Buffer

	err := (&Reconcile{Ledger: ledger, Out: &out, Log: logrus.NewEntry(log)}).Start(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 scopes unbalanced")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"balanced":true`)
	assert.Contains(t, lines[1], `"balanced":false`)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["scope"] == "u1|bad|BTC-EUR" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestReconcile_OnlyGivenScopes(t *testing.T) {
	ledger := &fakeLedger{trades: map[string][]model.Trade{
		"ok": {tr("b1", model.TradeTypeBuy, "2", 0)},
	}}
	log, _ := logrustest.NewNullLogger()
	var out bytes.Buffer

	err := (&Reconcile{Ledger: ledger, Out: &out, Log: logrus.NewEntry(log)}).
		Start(context.Background(), []model.Scope{{UserID: "u1", StrategyID: "ok", Symbol: "BTC-EUR"}})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"open_quantity":"2"`)
}
