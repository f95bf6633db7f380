package execution

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// Registry reports which broker names can be constructed.
type Registry interface {
	Has(name domain.BrokerName) bool
}

// ResolverConfig is the broker selection policy.
type ResolverConfig struct {
	// EnvDefault applies when the request names no broker. Empty means auto.
	EnvDefault string
	// PaperKillSwitch forces paper for any broker not in TrustedLive.
	PaperKillSwitch bool
	TrustedLive     []domain.BrokerName
	// WhenOpen and WhenClosed expand auto.
	WhenOpen   domain.BrokerName
	WhenClosed domain.BrokerName
	// MarketOpen is consulted when a request carries no market signal.
	// Nil means closed.
	MarketOpen func() bool
}

// Resolver turns a requested broker name into a concrete registered one.
// It holds no mutable state.
type Resolver struct {
	cfg      ResolverConfig
	registry Registry
	trusted  map[domain.BrokerName]struct{}
}

// NewResolver creates a resolver over the given registry.
func NewResolver(cfg ResolverConfig, registry Registry) *Resolver {
	if cfg.WhenOpen == "" {
		cfg.WhenOpen = domain.BrokerLiveA
	}
	if cfg.WhenClosed == "" {
		cfg.WhenClosed = domain.BrokerPaper
	}
	trusted := make(map[domain.BrokerName]struct{}, len(cfg.TrustedLive))
	for _, b := range cfg.TrustedLive {
		trusted[b] = struct{}{}
	}
	return &Resolver{cfg: cfg, registry: registry, trusted: trusted}
}

// Resolve applies, in order: explicit name or environment default, the paper
// kill switch, auto expansion by market state, and the registry check.
func (r *Resolver) Resolve(requested string, marketOpen *bool) (domain.BrokerName, error) {
	raw := requested
	if strings.TrimSpace(raw) == "" {
		raw = r.cfg.EnvDefault
	}
	name := domain.ParseBrokerName(raw)
	if name == "" {
		name = domain.BrokerAuto
	}

	if r.cfg.PaperKillSwitch {
		if _, ok := r.trusted[name]; !ok {
			if name != domain.BrokerPaper {
				slog.Debug("Paper kill switch engaged", slog.String("requested", string(name)))
			}
			name = domain.BrokerPaper
		}
	}

	if name == domain.BrokerAuto {
		if r.marketIsOpen(marketOpen) {
			name = r.cfg.WhenOpen
		} else {
			name = r.cfg.WhenClosed
		}
	}

	if r.registry == nil || !r.registry.Has(name) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedBroker, name)
	}
	return name, nil
}

// KillSwitch reports whether the paper kill switch is engaged.
func (r *Resolver) KillSwitch() bool {
	return r.cfg.PaperKillSwitch
}

func (r *Resolver) marketIsOpen(signal *bool) bool {
	if signal != nil {
		return *signal
	}
	if r.cfg.MarketOpen != nil {
		return r.cfg.MarketOpen()
	}
	return false
}
