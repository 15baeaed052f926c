package feeds

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	SourceCoinbase = "coinbase"
	SourceBinance  = "binance"
)

type Config struct {
	PriceFeed       string        `envconfig:"PRICE_FEED" default:"coinbase"` // coinbase | binance
	CoinbaseBaseURL string        `envconfig:"COINBASE_BASE_URL" default:"https://api.exchange.coinbase.com"`
	BinanceBaseURL  string        `envconfig:"BINANCE_BASE_URL" default:"https://api.binance.com"`
	RequestTimeout  time.Duration `envconfig:"FEED_REQUEST_TIMEOUT" default:"10s"`
	RetryAttempts   int           `envconfig:"FEED_RETRY_ATTEMPTS" default:"3"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
