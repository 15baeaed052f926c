package symbol

import "strings"

// knownQuotes are stripped from concatenated pairs such as "BTCEUR".
// Longer suffixes first so "USDT" wins over "USD".
var knownQuotes = []string{"USDT", "USDC", "EUR", "USD", "GBP", "BTC"}

// bareAssets end in a quote code but are assets in their own right.
var bareAssets = map[string]bool{
	"WBTC": true, "TBTC": true, "HBTC": true, "RENBTC": true,
	"BUSD": true, "TUSD": true, "FDUSD": true, "PYUSD": true, "SUSD": true,
	"AEUR": true, "EURC": true,
}

// minBaseLen is the shortest base a quote suffix is stripped from.
const minBaseLen = 2

func split(pair string) (base, quote string) {
	s := strings.ToUpper(strings.TrimSpace(pair))
	if s == "" {
		return "", ""
	}

	if i := strings.IndexAny(s, "-/_"); i >= 0 {
		return s[:i], s[i+1:]
	}

	if bareAssets[s] {
		return s, ""
	}
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s)-len(q) >= minBaseLen {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, ""
}

// Normalize maps exchange pair notation to the canonical base symbol.
// Examples:
//
//	BTC-EUR -> BTC
//	eth/usdt -> ETH
//	XRPEUR  -> XRP
//	WBTC    -> WBTC
//	SOL     -> SOL
func Normalize(pair string) string {
	base, _ := split(pair)
	return base
}

// Quote returns the quote currency of a pair, or "" when the pair has none.
func Quote(pair string) string {
	_, quote := split(pair)
	return quote
}

// ToPair builds the exchange pair notation for base and quote ("BTC", "EUR" -> "BTC-EUR").
func ToPair(base, quote string) string {
	b := Normalize(base)
	q := strings.ToUpper(strings.TrimSpace(quote))
	if q == "" {
		return b
	}
	return b + "-" + q
}

// Same reports whether two notations refer to the same base symbol.
func Same(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
