package feeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/symbol"
)

const (
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

type coinbaseTicker struct {
	TradeID int64           `json:"trade_id"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Bid     decimal.Decimal `json:"bid"`
	Ask     decimal.Decimal `json:"ask"`
	Time    time.Time       `json:"time"`
}

type coinbaseError struct {
	Message string `json:"message"`
}

// CoinbaseFeed reads the public product ticker of the Coinbase Exchange REST API.
type CoinbaseFeed struct {
	http *resty.Client
}

// isRetryableResp retries transport errors, 5xx, 429 and 408.
func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	if code >= 500 && code <= 599 {
		return true
	}
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func NewCoinbaseFeed(baseURL string, timeout time.Duration, attempts int) *CoinbaseFeed {
	if baseURL == "" {
		baseURL = "https://api.exchange.coinbase.com"
	}
	if attempts < 1 {
		attempts = 1
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(attempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &CoinbaseFeed{http: client}
}

// LastPrice returns the last trade of pair. Pairs in any notation are mapped
// to Coinbase product ids ("XRPEUR" -> "XRP-EUR"); a bare base quotes in USD.
func (f *CoinbaseFeed) LastPrice(ctx context.Context, pair string) (Quote, error) {
	quote := symbol.Quote(pair)
	if quote == "" {
		quote = "USD"
	}
	product := symbol.ToPair(symbol.Normalize(pair), quote)

	var ticker coinbaseTicker
	var apiErr coinbaseError
	resp, err := f.http.R().
		SetContext(ctx).
		SetPathParam("product", product).
		SetResult(&ticker).
		SetError(&apiErr).
		Get("/products/{product}/ticker")
	if err != nil {
		return Quote{}, fmt.Errorf("%w: coinbase %s: %v", ErrPriceUnavailable, product, err)
	}
	if resp.IsError() {
		logger.WithFields(map[string]interface{}{
			"feed":    SourceCoinbase,
			"product": product,
			"status":  resp.StatusCode(),
			"message": apiErr.Message,
		}).Warn("Ticker request rejected")
		return Quote{}, fmt.Errorf("%w: coinbase %s: status %d %s", ErrPriceUnavailable, product, resp.StatusCode(), apiErr.Message)
	}

	return Quote{
		Pair:   product,
		Price:  ticker.Price,
		Time:   ticker.Time,
		Source: SourceCoinbase,
	}, nil
}
