package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/gateway"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra"
)

func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("USE_PAPER", "true")
	t.Setenv("JOURNAL_PATH", filepath.Join(dir, "journal.db"))
	t.Setenv(infra.HomeEnv, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  enabled: true\nlogging:\n  level: error\n"), 0644))
	return path
}

func TestRun_Order(t *testing.T) {
	cfg := testConfig(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"order", "-config", cfg, "-dry-run",
		"-id", "cli-1", "-symbol", "NSE:SBIN-EQ", "-side", "BUY", "-qty", "1"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var ack gateway.OrderAck
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &ack))
	assert.Equal(t, "ACCEPTED", ack.Status)
	assert.NotEmpty(t, ack.OrderID)

	stdout.Reset()
	code = run(context.Background(), []string{"journal", "-config", cfg}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "cli-1")
}

func TestRun_Price(t *testing.T) {
	cfg := testConfig(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"price", "-config", cfg, "-symbol", "sbin-eq"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var q gateway.PriceQuote
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &q))
	assert.Equal(t, "NSE:SBIN-EQ", q.Symbol)
	assert.Greater(t, q.Price, 0.0)
}

func TestRun_ClientErrors(t *testing.T) {
	cfg := testConfig(t)
	// Without the kill switch an unknown broker is rejected instead of routed to paper.
	t.Setenv("USE_PAPER", "false")

	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"unknown command", []string{"cancel"}},
		{"missing id", []string{"order", "-config", cfg, "-symbol", "NSE:SBIN-EQ", "-side", "BUY", "-qty", "1"}},
		{"limit without price", []string{"order", "-config", cfg, "-id", "x", "-symbol", "NSE:SBIN-EQ", "-side", "BUY", "-qty", "1", "-type", "LIMIT"}},
		{"unknown broker", []string{"price", "-config", cfg, "-symbol", "X", "-broker", "nasdaq"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 2, run(context.Background(), tt.args, &stdout, &stderr))
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_Health(t *testing.T) {
	cfg := testConfig(t)
	var stdout, stderr bytes.Buffer

	require.Equal(t, 0, run(context.Background(), []string{"health", "-config", cfg}, &stdout, &stderr))

	var h gateway.HealthReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "paper", h.Mode)
}
