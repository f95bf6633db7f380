package execution

import (
	"errors"
	"testing"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

type staticRegistry map[domain.BrokerName]bool

func (r staticRegistry) Has(name domain.BrokerName) bool { return r[name] }

var allBrokers = staticRegistry{
	domain.BrokerPaper: true,
	domain.BrokerLiveA: true,
	domain.BrokerLiveB: true,
}

func boolPtr(b bool) *bool { return &b }

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		cfg        ResolverConfig
		requested  string
		marketOpen *bool
		want       domain.BrokerName
		wantErr    error
	}{
		{
			name:      "kill switch forces paper",
			cfg:       ResolverConfig{PaperKillSwitch: true},
			requested: "live_a",
			want:      domain.BrokerPaper,
		},
		{
			name:      "kill switch lets trusted through",
			cfg:       ResolverConfig{PaperKillSwitch: true, TrustedLive: []domain.BrokerName{domain.BrokerLiveA}},
			requested: "live_a",
			want:      domain.BrokerLiveA,
		},
		{
			name:       "kill switch beats auto",
			cfg:        ResolverConfig{PaperKillSwitch: true},
			requested:  "auto",
			marketOpen: boolPtr(true),
			want:       domain.BrokerPaper,
		},
		{
			name:       "auto open",
			cfg:        ResolverConfig{WhenOpen: domain.BrokerLiveA, WhenClosed: domain.BrokerPaper},
			requested:  "auto",
			marketOpen: boolPtr(true),
			want:       domain.BrokerLiveA,
		},
		{
			name:       "auto closed",
			cfg:        ResolverConfig{WhenOpen: domain.BrokerLiveA, WhenClosed: domain.BrokerPaper},
			requested:  "auto",
			marketOpen: boolPtr(false),
			want:       domain.BrokerPaper,
		},
		{
			name: "auto with no signal uses clock",
			cfg: ResolverConfig{
				WhenOpen: domain.BrokerLiveB, WhenClosed: domain.BrokerPaper,
				MarketOpen: func() bool { return true },
			},
			requested: "auto",
			want:      domain.BrokerLiveB,
		},
		{
			name:      "auto with no signal and no clock is closed",
			cfg:       ResolverConfig{},
			requested: "auto",
			want:      domain.BrokerPaper,
		},
		{
			name:       "env default when request blank",
			cfg:        ResolverConfig{EnvDefault: "live_b"},
			requested:  "  ",
			marketOpen: boolPtr(true),
			want:       domain.BrokerLiveB,
		},
		{
			name:       "blank everything means auto",
			cfg:        ResolverConfig{WhenOpen: domain.BrokerLiveB},
			marketOpen: boolPtr(true),
			want:       domain.BrokerLiveB,
		},
		{
			name:      "explicit beats env default",
			cfg:       ResolverConfig{EnvDefault: "live_b"},
			requested: "PAPER",
			want:      domain.BrokerPaper,
		},
		{
			name:      "legacy alias",
			cfg:       ResolverConfig{},
			requested: "angel_one",
			want:      domain.BrokerLiveA,
		},
		{
			name:      "unknown broker",
			cfg:       ResolverConfig{},
			requested: "nasdaq_direct",
			wantErr:   domain.ErrUnsupportedBroker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.cfg, allBrokers)
			got, err := r.Resolve(tt.requested, tt.marketOpen)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.requested, got, tt.want)
			}
		})
	}
}

func TestResolver_KillSwitchAlwaysPaper(t *testing.T) {
	r := NewResolver(ResolverConfig{PaperKillSwitch: true}, allBrokers)
	for _, name := range []string{"", "auto", "live_a", "live_b", "binance", "paper"} {
		for _, open := range []*bool{nil, boolPtr(true), boolPtr(false)} {
			got, err := r.Resolve(name, open)
			if err != nil || got != domain.BrokerPaper {
				t.Errorf("Resolve(%q) = %s, %v; want paper", name, got, err)
			}
		}
	}
}

func TestResolver_UnregisteredTarget(t *testing.T) {
	r := NewResolver(ResolverConfig{}, staticRegistry{domain.BrokerPaper: true})
	if _, err := r.Resolve("live_b", nil); !errors.Is(err, domain.ErrUnsupportedBroker) {
		t.Errorf("expected ErrUnsupportedBroker, got %v", err)
	}
}
