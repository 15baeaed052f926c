package lots

import (
	"github.com/shopspring/decimal"

	"lotengine/src/model"
	"lotengine/src/symbol"
)

// CalculateNetPositionFromTrades is Σ BUY − Σ SELL for one base symbol,
// independent of lot bookkeeping.
func CalculateNetPositionFromTrades(trades []model.Trade, sym string) decimal.Decimal {
	target := symbol.Normalize(sym)
	net := decimal.Zero
	for _, t := range trades {
		if symbol.Normalize(t.Symbol) != target {
			continue
		}
		switch t.TradeType {
		case model.TradeTypeBuy:
			net = net.Add(t.Amount)
		case model.TradeTypeSell:
			net = net.Sub(t.Amount)
		}
	}
	return net
}

// ReconciliationReport cross-checks derived lots against the raw ledger.
type ReconciliationReport struct {
	Symbol        string              `json:"symbol"`
	NetPosition   decimal.Decimal     `json:"net_position"`
	OpenQuantity  decimal.Decimal     `json:"open_quantity"`
	Oversold      decimal.Decimal     `json:"oversold"`
	Balanced      bool                `json:"balanced"`
	Discrepancies []model.Discrepancy `json:"discrepancies,omitempty"`
}

// Reconcile verifies Σ remaining − Σ oversold == net position for sym.
// Balanced is false when the identity breaks or any oversell was found.
func Reconcile(trades []model.Trade, sym string) (ReconciliationReport, error) {
	rec, err := Reconstruct(trades, sym)
	if err != nil {
		return ReconciliationReport{}, err
	}
	return ReconcileWith(rec, trades, sym), nil
}

// ReconcileWith is Reconcile over an existing reconstruction.
func ReconcileWith(rec *Reconstruction, trades []model.Trade, sym string) ReconciliationReport {
	target := symbol.Normalize(sym)
	report := ReconciliationReport{
		Symbol:       target,
		NetPosition:  CalculateNetPositionFromTrades(trades, target),
		OpenQuantity: decimal.Zero,
		Oversold:     decimal.Zero,
	}

	for _, lot := range rec.OpenLots {
		if lot.Symbol == target {
			report.OpenQuantity = report.OpenQuantity.Add(lot.RemainingAmount)
		}
	}
	for _, disc := range rec.Discrepancies {
		if disc.Symbol != target {
			continue
		}
		report.Discrepancies = append(report.Discrepancies, disc)
		if disc.Kind == model.DiscrepancyOversell {
			report.Oversold = report.Oversold.Add(disc.UnattributedAmount)
		}
	}

	identity := report.OpenQuantity.Sub(report.Oversold).Sub(report.NetPosition).Abs()
	report.Balanced = identity.LessThanOrEqual(dustTolerance(rec, target)) && report.Oversold.IsZero()
	return report
}

// dustTolerance allows one epsilon per lot: lots at or below epsilon are dropped from the open view.
func dustTolerance(rec *Reconstruction, sym string) decimal.Decimal {
	n := int64(1)
	for _, c := range rec.ClosedLots {
		if c.Symbol == sym {
			n++
		}
	}
	return decimal.New(n, -8)
}
