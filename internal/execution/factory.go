package execution

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra/angelone"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra/binance"
)

// Constructor builds an adapter. It runs at most once per successful
// creation; failures are not cached.
type Constructor func(ctx context.Context) (Adapter, error)

type factoryEntry struct {
	mu      sync.Mutex
	ctor    Constructor
	adapter Adapter
}

// Factory is the broker registry. Adapters are created lazily on first use,
// logged in, and then reused for the life of the process.
type Factory struct {
	mu      sync.RWMutex
	entries map[domain.BrokerName]*factoryEntry
}

// NewFactory creates an empty registry.
func NewFactory() *Factory {
	return &Factory{entries: make(map[domain.BrokerName]*factoryEntry)}
}

// FactoryOptions carries optional dependencies of the built-in adapters.
type FactoryOptions struct {
	// HTTPClient is shared by the live adapters (nil: their defaults).
	HTTPClient *http.Client
	// Tokens resolves instrument tokens for live_a.
	Tokens angelone.TokenResolver
}

// NewExecutionFactory registers paper, live_a and live_b from configuration.
// Live credentials are checked when the adapter is first needed, so a
// paper-only deployment starts without them.
func NewExecutionFactory(cfg *infra.Config, opts FactoryOptions) *Factory {
	f := NewFactory()

	f.Register(domain.BrokerPaper, func(ctx context.Context) (Adapter, error) {
		return NewPaperAdapter(PaperConfig{SeedCash: cfg.Paper.SeedCash}), nil
	})

	f.Register(domain.BrokerLiveA, func(ctx context.Context) (Adapter, error) {
		if err := cfg.RequireCredentials(domain.BrokerLiveA); err != nil {
			return nil, err
		}
		slog.Warn("🚨 Connecting to live_a (Angel One SmartAPI)")
		c, err := angelone.NewClient(cfg.API.AngelOne,
			angelone.WithHTTPClient(opts.HTTPClient),
			angelone.WithTokenResolver(opts.Tokens))
		if err != nil {
			return nil, err
		}
		return c, nil
	})

	f.Register(domain.BrokerLiveB, func(ctx context.Context) (Adapter, error) {
		if err := cfg.RequireCredentials(domain.BrokerLiveB); err != nil {
			return nil, err
		}
		slog.Warn("🚨 Connecting to live_b (Binance)",
			slog.Bool("futures", cfg.API.Binance.UseFutures),
			slog.Bool("testnet", cfg.API.Binance.Testnet))
		c, err := binance.NewClient(cfg.API.Binance, binance.WithHTTPClient(opts.HTTPClient))
		if err != nil {
			return nil, err
		}
		return c, nil
	})

	return f
}

// Register adds or replaces the constructor for name.
func (f *Factory) Register(name domain.BrokerName, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[name] = &factoryEntry{ctor: ctor}
}

// Has reports whether name is registered.
func (f *Factory) Has(name domain.BrokerName) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.entries[name]
	return ok
}

// Names lists registered brokers in sorted order.
func (f *Factory) Names() []domain.BrokerName {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.BrokerName, 0, len(f.entries))
	for n := range f.entries {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the adapter for name, constructing and logging it in on first
// use. Construction of one broker does not block lookups of another.
func (f *Factory) Get(ctx context.Context, name domain.BrokerName) (Adapter, error) {
	f.mu.RLock()
	e, ok := f.entries[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBroker, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.adapter != nil {
		return e.adapter, nil
	}

	a, err := e.ctor(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Login(ctx); err != nil {
		return nil, fmt.Errorf("login %s: %w", name, err)
	}
	e.adapter = a
	slog.Info("Broker adapter ready", slog.String("broker", string(name)))
	return a, nil
}

// Close logs out of every adapter created so far.
func (f *Factory) Close(ctx context.Context) error {
	f.mu.RLock()
	entries := make([]*factoryEntry, 0, len(f.entries))
	for _, e := range f.entries {
		entries = append(entries, e)
	}
	f.mu.RUnlock()

	var firstErr error
	for _, e := range entries {
		e.mu.Lock()
		a := e.adapter
		e.mu.Unlock()
		if a == nil {
			continue
		}
		if err := a.Logout(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
