package infra

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"USE_PAPER", "PAPER_TRADING", "BROKER", "BROKER_WHEN_OPEN", "BROKER_WHEN_CLOSED", "BROKER_TRUSTED_LIVE"} {
		if v, ok := os.LookupEnv(k); ok {
			t.Setenv(k, v) // restored on cleanup
			os.Unsetenv(k)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearGatewayEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.Broker.PaperKillSwitch)
	assert.Equal(t, "auto", cfg.Broker.Default)
	assert.Equal(t, "live_a", cfg.Broker.WhenAutoOpen)
	assert.Equal(t, "paper", cfg.Broker.WhenAutoClosed)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Circuit.ResetWindow)
	assert.Equal(t, 10*time.Second, cfg.Gateway.CallTimeout)
	assert.Equal(t, 100_000.0, cfg.Paper.SeedCash)
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	clearGatewayEnv(t)
	path := writeFile(t, "config.yaml", `
broker:
  default: paper
  when_auto_open: live_b
  when_auto_closed: paper
  paper_kill_switch: true
circuit:
  failure_threshold: 3
  reset_window: 5s
`)
	t.Setenv("BROKER", "live_a")
	t.Setenv("USE_PAPER", "false")
	t.Setenv("BROKER_TRUSTED_LIVE", "live_a, binance")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "live_a", cfg.Broker.Default, "env wins over file")
	assert.Equal(t, "live_b", cfg.Broker.WhenAutoOpen)
	assert.False(t, cfg.Broker.PaperKillSwitch)
	assert.Equal(t, 3, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 5*time.Second, cfg.Circuit.ResetWindow)
	assert.Equal(t, []domain.BrokerName{domain.BrokerLiveA, domain.BrokerLiveB}, cfg.TrustedLiveBrokers())
}

func TestLoadConfig_LegacyPaperTrading(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("PAPER_TRADING", "0")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.False(t, cfg.Broker.PaperKillSwitch)

	// USE_PAPER wins when both are set.
	t.Setenv("USE_PAPER", "true")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.Broker.PaperKillSwitch)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearGatewayEnv(t)

	tests := []struct {
		name string
		yaml string
	}{
		{"zero threshold", "circuit:\n  failure_threshold: -1\n"},
		{"auto as auto default", "broker:\n  when_auto_open: auto\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad timezone", "gateway:\n  market_timezone: Mars/Olympus\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
		})
	}
}

func TestLoadConfig_SecretWarningGoesToStderr(t *testing.T) {
	clearGatewayEnv(t)
	assert.Equal(t, io.Writer(os.Stderr), warnOut)

	var buf bytes.Buffer
	prev := warnOut
	warnOut = &buf
	t.Cleanup(func() { warnOut = prev })

	_, err := LoadConfig(writeFile(t, "config.yaml", "api:\n  binance:\n    secret_key: s\n"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "SECURITY WARNING")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSecretConfig_FillsOnlyEmpty(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("BINANCE_API_KEY", "env-key")
	secrets := writeFile(t, "live.yaml", `
api:
  binance:
    api_key: file-key
    secret_key: file-secret
`)
	t.Setenv("SECRETS_PATH", secrets)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.API.Binance.APIKey)
	assert.Equal(t, "file-secret", cfg.API.Binance.SecretKey)
}

func TestRequireCredentials(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.RequireCredentials(domain.BrokerLiveA)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "SMARTAPI_TOTP_SECRET")

	cfg.API.Binance.APIKey = "k"
	err = cfg.RequireCredentials(domain.BrokerLiveB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BINANCE_API_SECRET")
	assert.NotContains(t, err.Error(), "BINANCE_API_KEY")

	assert.NoError(t, cfg.RequireCredentials(domain.BrokerPaper))
}
