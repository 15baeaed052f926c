package lots

import (
	"fmt"
	"strings"

	"lotengine/src/model"
)

// ValidationError reports a malformed ledger record.
type ValidationError struct {
	TradeID string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trade %q: %s %s", e.TradeID, e.Field, e.Reason)
}

// ValidateTrade checks the fields lot reconstruction relies on.
func ValidateTrade(t model.Trade) error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return &ValidationError{TradeID: t.ID, Field: "id", Reason: "is empty"}
	case t.TradeType != model.TradeTypeBuy && t.TradeType != model.TradeTypeSell:
		return &ValidationError{TradeID: t.ID, Field: "trade_type", Reason: fmt.Sprintf("%q is not BUY or SELL", t.TradeType)}
	case strings.TrimSpace(t.Symbol) == "":
		return &ValidationError{TradeID: t.ID, Field: "symbol", Reason: "is empty"}
	case !t.Amount.IsPositive():
		return &ValidationError{TradeID: t.ID, Field: "amount", Reason: "must be positive"}
	case !t.Price.IsPositive():
		return &ValidationError{TradeID: t.ID, Field: "price", Reason: "must be positive"}
	}
	return nil
}

// ValidateTrades returns the first validation failure, or a duplicate id error.
func ValidateTrades(trades []model.Trade) error {
	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if err := ValidateTrade(t); err != nil {
			return err
		}
		if _, dup := seen[t.ID]; dup {
			return &ValidationError{TradeID: t.ID, Field: "id", Reason: "is duplicated"}
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
