package symbols

import (
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

// Item is one entry of a broker's instrument picker.
type Item struct {
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	// Token is the venue instrument id, when the source provides one.
	Token string `json:"token,omitempty"`
}

// Instrument kinds.
const (
	KindEquity     = "equity"
	KindOption     = "option"
	KindCryptoSpot = "crypto_spot"
)

var (
	nseSeed = []Item{
		{Symbol: "NSE:SBIN-EQ", Label: "SBIN", Kind: KindEquity, Token: "3045"},
		{Symbol: "NSE:RELIANCE-EQ", Label: "RELIANCE", Kind: KindEquity, Token: "2885"},
		{Symbol: "NFO:BANKNIFTY25SEP45000CE", Label: "BANKNIFTY 25-Sep 45000 CE", Kind: KindOption},
	}
	binanceSeed = []Item{
		{Symbol: "BINANCE:BTCUSDT", Label: "BTC/USDT", Kind: KindCryptoSpot},
		{Symbol: "BINANCE:ETHUSDT", Label: "ETH/USDT", Kind: KindCryptoSpot},
	}
	paperSeed = []Item{
		{Symbol: "BINANCE:BTCUSDT", Label: "BTC/USDT", Kind: KindCryptoSpot},
		{Symbol: "NSE:SBIN-EQ", Label: "SBIN", Kind: KindEquity},
	}
)

func seed(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// loadNSE reads a cached instrument list ([{symbol,label,kind,token}]).
// An empty path yields the seed list.
func loadNSE(path string) ([]Item, error) {
	if path == "" {
		return seed(nseSeed), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read NSE symbols: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse NSE symbols: %w", err)
	}
	for i := range items {
		items[i].Symbol = symbol.Normalize(items[i].Symbol, "NSE").Combined
	}
	return items, nil
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// loadBinance converts a cached exchangeInfo document, keeping only pairs
// in TRADING status. An empty path yields the seed list.
func loadBinance(path string) ([]Item, error) {
	if path == "" {
		return seed(binanceSeed), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read binance symbols: %w", err)
	}
	var info exchangeInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse binance exchangeInfo: %w", err)
	}

	items := make([]Item, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		items = append(items, Item{
			Symbol: "BINANCE:" + s.Symbol,
			Label:  s.BaseAsset + "/" + s.QuoteAsset,
			Kind:   KindCryptoSpot,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Symbol < items[j].Symbol })
	return items, nil
}
