package infra

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// BrokerConfig drives broker selection.
type BrokerConfig struct {
	// Default is used when a request names no broker ("auto" if empty).
	Default string `yaml:"default" env:"BROKER"`
	// WhenAutoOpen / WhenAutoClosed expand "auto" by market state.
	WhenAutoOpen   string `yaml:"when_auto_open" env:"BROKER_WHEN_OPEN"`
	WhenAutoClosed string `yaml:"when_auto_closed" env:"BROKER_WHEN_CLOSED"`
	// PaperKillSwitch forces paper for every name not in TrustedLive.
	PaperKillSwitch bool `yaml:"paper_kill_switch" env:"USE_PAPER"`
	// TrustedLive lists live brokers allowed through the kill switch.
	TrustedLive []string `yaml:"trusted_live" env:"BROKER_TRUSTED_LIVE" envSeparator:","`
}

// CircuitConfig overrides the breaker defaults.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" env:"CIRCUIT_FAILURE_THRESHOLD"`
	ResetWindow      time.Duration `yaml:"reset_window" env:"CIRCUIT_RESET_WINDOW"`
}

// GatewayConfig holds request handling settings.
type GatewayConfig struct {
	CallTimeout     time.Duration `yaml:"call_timeout" env:"GATEWAY_CALL_TIMEOUT"`
	DefaultExchange string        `yaml:"default_exchange" env:"GATEWAY_DEFAULT_EXCHANGE"`
	MarketTimezone  string        `yaml:"market_timezone" env:"MARKET_TZ"`
}

// PaperConfig seeds the simulated ledger.
type PaperConfig struct {
	SeedCash float64 `yaml:"seed_cash" env:"PAPER_SEED_CASH"`
}

// AngelOneConfig holds SmartAPI settings for live_a.
type AngelOneConfig struct {
	RestURL    string `yaml:"rest_url" env:"SMARTAPI_REST_URL"`
	APIKey     string `yaml:"api_key" env:"SMARTAPI_API_KEY"`
	ClientID   string `yaml:"client_id" env:"SMARTAPI_CLIENT_ID"`
	Password   string `yaml:"password" env:"SMARTAPI_PASSWORD"`
	TOTPSecret string `yaml:"totp_secret" env:"SMARTAPI_TOTP_SECRET"`
	PublicIP   string `yaml:"public_ip" env:"PUBLIC_IP"`
}

// BinanceConfig holds REST settings for live_b.
type BinanceConfig struct {
	APIKey     string `yaml:"api_key" env:"BINANCE_API_KEY"`
	SecretKey  string `yaml:"secret_key" env:"BINANCE_API_SECRET"`
	UseFutures bool   `yaml:"use_futures" env:"BINANCE_USE_FUTURES"`
	Testnet    bool   `yaml:"testnet" env:"BINANCE_TESTNET"`
	RestURL    string `yaml:"rest_url" env:"BINANCE_REST_URL"`
}

// SymbolsConfig points at cached instrument lists.
type SymbolsConfig struct {
	NSEPath     string        `yaml:"nse_path" env:"NSE_SYMBOLS_PATH"`
	BinancePath string        `yaml:"binance_path" env:"BINANCE_SYMBOLS_PATH"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"SYMBOLS_CACHE_TTL"`
}

// JournalConfig enables the SQLite order audit log.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" env:"JOURNAL_ENABLED"`
	Path    string `yaml:"path" env:"JOURNAL_PATH"`
}

// Config holds every setting of the gateway.
// LoadConfig reads the YAML file first, then lets environment variables win.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Broker  BrokerConfig  `yaml:"broker"`
	Circuit CircuitConfig `yaml:"circuit"`
	Gateway GatewayConfig `yaml:"gateway"`
	Paper   PaperConfig   `yaml:"paper"`

	API struct {
		AngelOne AngelOneConfig `yaml:"angel_one"`
		Binance  BinanceConfig  `yaml:"binance"`
	} `yaml:"api"`

	// SecretsPath optionally points at a separate YAML holding API keys.
	SecretsPath string `yaml:"secrets_path" env:"SECRETS_PATH"`

	Symbols SymbolsConfig `yaml:"symbols"`
	Journal JournalConfig `yaml:"journal"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// DefaultConfig returns the safe baseline: paper kill switch on, auto mode,
// live_a while the market is open and paper otherwise.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = AppName
	cfg.App.Version = "dev"
	cfg.Broker = BrokerConfig{
		Default:         string(domain.BrokerAuto),
		WhenAutoOpen:    string(domain.BrokerLiveA),
		WhenAutoClosed:  string(domain.BrokerPaper),
		PaperKillSwitch: true,
	}
	cfg.Circuit = CircuitConfig{FailureThreshold: 5, ResetWindow: 30 * time.Second}
	cfg.Gateway = GatewayConfig{
		CallTimeout:     10 * time.Second,
		DefaultExchange: "NSE",
		MarketTimezone:  "Asia/Kolkata",
	}
	cfg.Paper.SeedCash = 100_000
	cfg.Symbols.CacheTTL = 10 * time.Minute
	cfg.Journal.Path = "journal.db"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

// LoadConfig reads the YAML file at path on top of DefaultConfig, applies
// environment overrides and validates the result. An empty path skips the
// file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	if cfg.SecretsPath != "" {
		secrets, err := LoadSecretConfig(cfg.SecretsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		secrets.ApplyTo(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid configuration: %v", domain.ErrConfiguration, err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Circuit.FailureThreshold <= 0 {
		return errors.New("circuit failure threshold must be positive")
	}
	if c.Circuit.ResetWindow <= 0 {
		return errors.New("circuit reset window must be positive")
	}
	if c.Gateway.CallTimeout <= 0 {
		return errors.New("gateway call timeout must be positive")
	}
	if c.Paper.SeedCash <= 0 {
		return errors.New("paper seed cash must be positive")
	}

	for _, name := range []string{c.Broker.WhenAutoOpen, c.Broker.WhenAutoClosed} {
		b := domain.ParseBrokerName(name)
		if b == "" || b == domain.BrokerAuto {
			return fmt.Errorf("auto defaults must name a concrete broker, got %q", name)
		}
	}

	if c.Gateway.MarketTimezone != "" {
		if _, err := time.LoadLocation(c.Gateway.MarketTimezone); err != nil {
			return fmt.Errorf("invalid market timezone %q: %w", c.Gateway.MarketTimezone, err)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// TrustedLiveBrokers returns the parsed kill-switch allow list.
func (c *Config) TrustedLiveBrokers() []domain.BrokerName {
	out := make([]domain.BrokerName, 0, len(c.Broker.TrustedLive))
	for _, n := range c.Broker.TrustedLive {
		if b := domain.ParseBrokerName(n); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// warnOut receives the secrets-in-file warning. Stdout carries command output.
var warnOut io.Writer = os.Stderr

// overrideWithEnv lets environment variables win over the file.
// Environment variables take precedence so secrets never need to live in YAML.
func overrideWithEnv(cfg *Config) error {
	// Security Warning: Log if secrets found in config file
	if cfg.API.AngelOne.Password != "" || cfg.API.AngelOne.TOTPSecret != "" || cfg.API.Binance.SecretKey != "" {
		// Using fmt instead of slog: the logger is configured from this file.
		fmt.Fprintln(warnOut, "⚠️  SECURITY WARNING: API secrets found in config file.")
		fmt.Fprintln(warnOut, "   Recommendation: Use environment variables instead:")
		fmt.Fprintln(warnOut, "   - SMARTAPI_API_KEY, SMARTAPI_CLIENT_ID, SMARTAPI_PASSWORD, SMARTAPI_TOTP_SECRET")
		fmt.Fprintln(warnOut, "   - BINANCE_API_KEY, BINANCE_API_SECRET")
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	// PAPER_TRADING is the older name of USE_PAPER.
	if _, set := os.LookupEnv("USE_PAPER"); !set {
		if legacy, ok := os.LookupEnv("PAPER_TRADING"); ok {
			on, err := strconv.ParseBool(strings.TrimSpace(legacy))
			if err != nil {
				return fmt.Errorf("invalid PAPER_TRADING: %w", err)
			}
			cfg.Broker.PaperKillSwitch = on
		}
	}
	return nil
}
