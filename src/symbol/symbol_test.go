package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BTC-EUR", "BTC"},
		{"btc-eur", "BTC"},
		{" eth/usdt ", "ETH"},
		{"SOL_USDC", "SOL"},
		{"XRPEUR", "XRP"},
		{"ADAUSDT", "ADA"},
		{"ETHBTC", "ETH"},
		{"BTC", "BTC"},
		{"EUR", "EUR"},
		{"WBTC", "WBTC"},
		{"BUSD", "BUSD"},
		{"AEUR", "AEUR"},
		{"FDUSD", "FDUSD"},
		{"WBTC-EUR", "WBTC"},
		{"WBTCEUR", "WBTC"},
		{"FDUSDUSDT", "FDUSD"},
		{"OPUSDT", "OP"},
		{"", ""},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "EUR", Quote("BTC-EUR"))
	assert.Equal(t, "USDT", Quote("BTCUSDT"))
	assert.Equal(t, "", Quote("BTC"))
	assert.Equal(t, "", Quote("WBTC"))
	assert.Equal(t, "", Quote("BUSD"))
}

func TestToPair(t *testing.T) {
	assert.Equal(t, "BTC-EUR", ToPair("btc", "eur"))
	assert.Equal(t, "XRP-EUR", ToPair("XRP-EUR", "EUR"))
	assert.Equal(t, "ETH", ToPair("eth", ""))
}

func TestSame(t *testing.T) {
	assert.True(t, Same("BTC-EUR", "btc/usdt"))
	assert.False(t, Same("BTC-EUR", "ETH-EUR"))
	assert.True(t, Same("WBTC", "WBTC-EUR"))
	assert.False(t, Same("WBTC", "BTC-EUR"))
}
