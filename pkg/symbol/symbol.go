package symbol

import "strings"

// DefaultExchange is applied when a raw symbol carries no exchange prefix.
const DefaultExchange = "NSE"

// Canonical is the broker-neutral form of an instrument symbol.
// Combined is always Exchange + ":" + Token.
type Canonical struct {
	Exchange string `json:"exchange"`
	Token    string `json:"token"`
	Combined string `json:"combined"`
}

// Normalize maps a raw symbol such as "nse:sbin-eq" or "SBIN-EQ" to its
// canonical triple. It never fails: input without a usable exchange part
// degrades to defaultExchange.
func Normalize(raw, defaultExchange string) Canonical {
	defaultExchange = strings.ToUpper(strings.TrimSpace(defaultExchange))
	if defaultExchange == "" {
		defaultExchange = DefaultExchange
	}

	s := strings.ToUpper(strings.TrimSpace(raw))
	exchange, token := defaultExchange, s
	if ex, tok, found := strings.Cut(s, ":"); found {
		exchange, token = strings.TrimSpace(ex), strings.TrimSpace(tok)
		if exchange == "" {
			exchange = defaultExchange
		}
	}

	return Canonical{
		Exchange: exchange,
		Token:    token,
		Combined: exchange + ":" + token,
	}
}

// String returns the combined form.
func (c Canonical) String() string {
	return c.Combined
}
