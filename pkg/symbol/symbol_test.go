package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Canonical
	}{
		{"with exchange", "NSE:SBIN-EQ", Canonical{"NSE", "SBIN-EQ", "NSE:SBIN-EQ"}},
		{"lower case", "binance:btcusdt", Canonical{"BINANCE", "BTCUSDT", "BINANCE:BTCUSDT"}},
		{"no exchange", "sbin-eq", Canonical{"NSE", "SBIN-EQ", "NSE:SBIN-EQ"}},
		{"empty exchange", ":RELIANCE-EQ", Canonical{"NSE", "RELIANCE-EQ", "NSE:RELIANCE-EQ"}},
		{"padded", "  nfo:banknifty  ", Canonical{"NFO", "BANKNIFTY", "NFO:BANKNIFTY"}},
		{"second colon stays in token", "NSE:A:B", Canonical{"NSE", "A:B", "NSE:A:B"}},
		{"empty input", "", Canonical{"NSE", "", "NSE:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, DefaultExchange))
		})
	}
}

func TestNormalize_DefaultExchangeOverride(t *testing.T) {
	got := Normalize("btcusdt", "binance")
	assert.Equal(t, "BINANCE:BTCUSDT", got.Combined)

	got = Normalize("btcusdt", "")
	assert.Equal(t, "NSE:BTCUSDT", got.Combined)
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, raw := range []string{"NSE:SBIN-EQ", "sbin-eq", ":x", "a:b:c", "  ", "BSE:"} {
		first := Normalize(raw, DefaultExchange)
		assert.Equal(t, first, Normalize(first.Combined, DefaultExchange), raw)
	}
}

func FuzzNormalize_Idempotent(f *testing.F) {
	f.Add("NSE:SBIN-EQ")
	f.Add("sbin-eq")
	f.Add(":")
	f.Add("  binance : btcusdt ")

	f.Fuzz(func(t *testing.T, raw string) {
		first := Normalize(raw, DefaultExchange)
		if first.Combined != first.Exchange+":"+first.Token {
			t.Fatalf("combined %q does not join %q and %q", first.Combined, first.Exchange, first.Token)
		}
		if again := Normalize(first.Combined, DefaultExchange); again != first {
			t.Fatalf("Normalize not idempotent: %+v then %+v", first, again)
		}
	})
}
