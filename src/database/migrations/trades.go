package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

// uppercaseTradeSymbols normalises symbols written by older importers
// ("btc-eur", " XRP/EUR") so scope lookups can match on a plain prefix.
func uppercaseTradeSymbols(db *gorm.DB) error {
	res := db.Exec("UPDATE trades SET symbol = UPPER(TRIM(symbol)) WHERE symbol <> UPPER(TRIM(symbol))")
	if res.Error != nil {
		return fmt.Errorf("uppercase trade symbols: %w", res.Error)
	}
	return nil
}

// backfillTradeTotalValue fills total_value on rows imported without it.
func backfillTradeTotalValue(db *gorm.DB) error {
	res := db.Exec("UPDATE trades SET total_value = amount * price WHERE total_value = 0 AND amount > 0")
	if res.Error != nil {
		return fmt.Errorf("backfill trade total_value: %w", res.Error)
	}
	return nil
}
