package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrStaleQuote       = errors.New("quote is stale")
)

// Quote is the last traded price of a pair as reported by a venue.
type Quote struct {
	Pair   string          `json:"pair"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
	Source string          `json:"source"`
}

// PriceFeed returns the latest price for an exchange pair ("BTC-EUR").
type PriceFeed interface {
	LastPrice(ctx context.Context, pair string) (Quote, error)
}

// CheckFresh rejects quotes older than maxAge at now, or without a positive
// price. A zero maxAge disables the age check.
func CheckFresh(q Quote, now time.Time, maxAge time.Duration) error {
	if !q.Price.IsPositive() {
		return fmt.Errorf("%w: %s price %s", ErrPriceUnavailable, q.Pair, q.Price)
	}
	if maxAge <= 0 {
		return nil
	}
	if q.Time.IsZero() {
		return fmt.Errorf("%w: %s quote has no timestamp", ErrStaleQuote, q.Pair)
	}
	if age := now.Sub(q.Time); age > maxAge {
		return fmt.Errorf("%w: %s quote is %s old, max %s", ErrStaleQuote, q.Pair, age.Truncate(time.Millisecond), maxAge)
	}
	return nil
}

// New builds the feed named by config.PriceFeed.
func New(config Config) (PriceFeed, error) {
	switch config.PriceFeed {
	case SourceCoinbase, "":
		return NewCoinbaseFeed(config.CoinbaseBaseURL, config.RequestTimeout, config.RetryAttempts), nil
	case SourceBinance:
		return NewBinanceFeed(config.BinanceBaseURL, config.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported PRICE_FEED %q", config.PriceFeed)
	}
}
