package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// SecretConfig matches the structure of secrets/live.yaml.
type SecretConfig struct {
	API struct {
		AngelOne struct {
			APIKey     string `yaml:"api_key"`
			ClientID   string `yaml:"client_id"`
			Password   string `yaml:"password"`
			TOTPSecret string `yaml:"totp_secret"`
		} `yaml:"angel_one"`
		Binance struct {
			APIKey    string `yaml:"api_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"binance"`
	} `yaml:"api"`
}

// LoadSecretConfig loads API keys from a separate yaml file.
// It returns error if file is missing (Fail Fast).
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

// ApplyTo fills credentials that are still empty in cfg.
// Values already set (by YAML or environment) are kept.
func (s *SecretConfig) ApplyTo(cfg *Config) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	a := &cfg.API.AngelOne
	fill(&a.APIKey, s.API.AngelOne.APIKey)
	fill(&a.ClientID, s.API.AngelOne.ClientID)
	fill(&a.Password, s.API.AngelOne.Password)
	fill(&a.TOTPSecret, s.API.AngelOne.TOTPSecret)

	b := &cfg.API.Binance
	fill(&b.APIKey, s.API.Binance.APIKey)
	fill(&b.SecretKey, s.API.Binance.SecretKey)
}

// RequireCredentials checks that every credential the named live broker needs
// is present. Missing values are reported by their environment variable name.
func (c *Config) RequireCredentials(name domain.BrokerName) error {
	var missing []string
	need := func(v, envName string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, envName)
		}
	}

	switch name {
	case domain.BrokerLiveA:
		a := c.API.AngelOne
		need(a.APIKey, "SMARTAPI_API_KEY")
		need(a.ClientID, "SMARTAPI_CLIENT_ID")
		need(a.Password, "SMARTAPI_PASSWORD")
		need(a.TOTPSecret, "SMARTAPI_TOTP_SECRET")
	case domain.BrokerLiveB:
		b := c.API.Binance
		need(b.APIKey, "BINANCE_API_KEY")
		need(b.SecretKey, "BINANCE_API_SECRET")
	default:
		return nil
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", domain.ErrConfiguration, name, strings.Join(missing, ", "))
	}
	return nil
}
