package feeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"

	"lotengine/src/symbol"
)

// BinanceFeed reads the 24h ticker through goex.
type BinanceFeed struct {
	exchange goex.API
}

func NewBinanceFeed(baseURL string, timeout time.Duration) *BinanceFeed {
	if baseURL == "" {
		baseURL = binance.GLOBAL_API_BASE_URL
	}
	apiConfig := &goex.APIConfig{
		HttpClient: &http.Client{Timeout: timeout},
		Endpoint:   baseURL,
	}
	return &BinanceFeed{exchange: binance.NewWithConfig(apiConfig)}
}

// LastPrice returns the last trade of pair. goex has no context support, so
// ctx is only checked before the call; the http client timeout bounds it.
func (f *BinanceFeed) LastPrice(ctx context.Context, pair string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}

	base := symbol.Normalize(pair)
	quote := symbol.Quote(pair)
	if quote == "" {
		quote = "USDT"
	}
	cp := goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: quote})

	ticker, err := f.exchange.GetTicker(cp)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: binance %s%s: %v", ErrPriceUnavailable, base, quote, err)
	}
	if ticker == nil {
		return Quote{}, fmt.Errorf("%w: binance %s%s: empty ticker", ErrPriceUnavailable, base, quote)
	}

	return Quote{
		Pair:   symbol.ToPair(base, quote),
		Price:  decimal.NewFromFloat(ticker.Last),
		Time:   tickerTime(ticker.Date),
		Source: SourceBinance,
	}, nil
}

// tickerTime accepts both second and millisecond epochs.
func tickerTime(v uint64) time.Time {
	switch {
	case v == 0:
		return time.Time{}
	case v > 1e12:
		return time.UnixMilli(int64(v)).UTC()
	default:
		return time.Unix(int64(v), 0).UTC()
	}
}
