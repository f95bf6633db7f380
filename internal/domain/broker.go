package domain

import "strings"

// BrokerName identifies a broker adapter.
type BrokerName string

const (
	BrokerPaper BrokerName = "paper"
	BrokerLiveA BrokerName = "live_a" // Angel One SmartAPI
	BrokerLiveB BrokerName = "live_b" // Binance REST

	// BrokerAuto defers the choice to the market-open/closed default pair.
	BrokerAuto BrokerName = "auto"
)

// legacyAliases keeps names used by older clients and env files working.
var legacyAliases = map[string]BrokerName{
	"paper_trade":   BrokerPaper,
	"paper_trading": BrokerPaper,
	"angel_one":     BrokerLiveA,
	"angelone":      BrokerLiveA,
	"binance":       BrokerLiveB,
}

// ParseBrokerName canonicalizes a user supplied broker name.
// Unknown names are returned lower-cased so the resolver can reject them.
func ParseBrokerName(s string) BrokerName {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if alias, ok := legacyAliases[key]; ok {
		return alias
	}
	return BrokerName(key)
}

func (b BrokerName) String() string { return string(b) }

// IsLive reports whether the broker talks to a real venue.
func (b BrokerName) IsLive() bool {
	return b == BrokerLiveA || b == BrokerLiveB
}
