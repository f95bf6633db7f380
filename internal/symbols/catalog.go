// Package symbols serves per-broker instrument lists and resolves SmartAPI
// symbol tokens. Lists are loaded from cached files (or seed lists) and kept
// in a ristretto cache so edits to the files are picked up after the TTL.
package symbols

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// Config points the catalog at its source files.
type Config struct {
	NSEPath     string
	BinancePath string
	TTL         time.Duration
}

// Catalog is safe for concurrent use.
type Catalog struct {
	cfg   Config
	cache *ristretto.Cache
}

// New creates a catalog. A non-positive TTL defaults to ten minutes.
func New(cfg Config) (*Catalog, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e3,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Catalog{cfg: cfg, cache: c}, nil
}

// Close stops the cache goroutines.
func (c *Catalog) Close() { c.cache.Close() }

// List returns the instruments offered for broker.
func (c *Catalog) List(broker domain.BrokerName) ([]Item, error) {
	var (
		key  string
		load func() ([]Item, error)
	)
	switch broker {
	case domain.BrokerLiveA:
		key, load = "nse", func() ([]Item, error) { return loadNSE(c.cfg.NSEPath) }
	case domain.BrokerLiveB:
		key, load = "binance", func() ([]Item, error) { return loadBinance(c.cfg.BinancePath) }
	case domain.BrokerPaper:
		key, load = "paper", func() ([]Item, error) { return seed(paperSeed), nil }
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBroker, broker)
	}

	items, err := c.cached(key, load)
	if err != nil {
		return nil, err
	}
	return seed(items), nil
}

func (c *Catalog) cached(key string, load func() ([]Item, error)) ([]Item, error) {
	if v, ok := c.cache.Get(key); ok {
		return v.([]Item), nil
	}
	items, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, items, 1, c.cfg.TTL)
	c.cache.Wait()
	slog.Debug("Symbol list loaded", slog.String("source", key), slog.Int("count", len(items)))
	return items, nil
}

// SymbolToken returns the SmartAPI token of exchange:tradingSymbol from the
// NSE list. Lookup failures are reported as not found.
func (c *Catalog) SymbolToken(exchange, tradingSymbol string) (string, bool) {
	idx, err := c.tokenIndex()
	if err != nil {
		slog.Warn("Symbol token index unavailable", slog.Any("error", err))
		return "", false
	}
	tok, ok := idx[exchange+":"+tradingSymbol]
	return tok, ok
}

func (c *Catalog) tokenIndex() (map[string]string, error) {
	if v, ok := c.cache.Get("nse:tokens"); ok {
		return v.(map[string]string), nil
	}
	items, err := c.cached("nse", func() ([]Item, error) { return loadNSE(c.cfg.NSEPath) })
	if err != nil {
		return nil, err
	}
	idx := make(map[string]string, len(items))
	for _, it := range items {
		if it.Token != "" {
			idx[it.Symbol] = it.Token
		}
	}
	c.cache.SetWithTTL("nse:tokens", idx, 1, c.cfg.TTL)
	c.cache.Wait()
	return idx, nil
}
