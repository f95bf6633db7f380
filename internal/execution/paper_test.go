package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/price"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

func ptr(f float64) *float64 { return &f }

func limit(sym string, side domain.Side, qty, px float64) domain.OrderRequest {
	return domain.OrderRequest{Symbol: sym, Side: side, Type: domain.OrderTypeLimit, Qty: qty, Price: ptr(px)}
}

func TestPaperLTP_DeterministicAndBounded(t *testing.T) {
	for _, raw := range []string{"NSE:SBIN-EQ", "BINANCE:BTCUSDT", "X", "NSE:"} {
		sym := symbol.Normalize(raw, "")
		a, b := PaperLTP(sym), PaperLTP(sym)
		assert.Equal(t, a, b, raw)
		assert.GreaterOrEqual(t, a, 100.0, raw)
		assert.LessOrEqual(t, a, 149.9, raw)
	}
}

func TestPaperAdapter_LTPExtracts(t *testing.T) {
	p := NewPaperAdapter(PaperConfig{})
	sym := symbol.Normalize("nse:sbin-eq", "")

	raw, err := p.LTP(context.Background(), sym)
	require.NoError(t, err)

	got, err := price.Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, PaperLTP(sym), got)
}

func TestPaperAdapter_LedgerArithmetic(t *testing.T) {
	p := NewPaperAdapter(PaperConfig{SeedCash: 100_000})
	ctx := context.Background()
	const sym = "NSE:SBIN-EQ"
	p1, p2 := 100.5, 101.5

	_, err := p.PlaceOrder(ctx, limit(sym, domain.SideBuy, 10, p1))
	require.NoError(t, err)
	_, err = p.PlaceOrder(ctx, limit(sym, domain.SideBuy, 10, p2))
	require.NoError(t, err)

	snap, err := p.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, 20.0, snap.Positions[0].Qty)
	assert.InDelta(t, (p1+p2)/2, snap.Positions[0].AvgPrice, 1e-9)
	assert.InDelta(t, 100_000-10*p1-10*p2, *snap.Cash, 1e-9)

	_, err = p.PlaceOrder(ctx, limit(sym, domain.SideSell, 20, 102))
	require.NoError(t, err)

	snap, err = p.Positions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Positions[0].Qty)
	assert.Equal(t, 0.0, snap.Positions[0].AvgPrice)
	assert.InDelta(t, 100_000-10*p1-10*p2+20*102, *snap.Cash, 1e-9)
	assert.Len(t, p.Orders(), 3)
}

func TestPaperAdapter_AveragingRules(t *testing.T) {
	tests := []struct {
		name    string
		fills   []domain.OrderRequest
		wantQty float64
		wantAvg float64
	}{
		{
			name:    "reduce keeps average",
			fills:   []domain.OrderRequest{limit("A", domain.SideBuy, 10, 100), limit("A", domain.SideSell, 4, 150)},
			wantQty: 6, wantAvg: 100,
		},
		{
			name:    "cross resets to fill price",
			fills:   []domain.OrderRequest{limit("A", domain.SideBuy, 5, 100), limit("A", domain.SideSell, 8, 120)},
			wantQty: -3, wantAvg: 120,
		},
		{
			name:    "short side averages",
			fills:   []domain.OrderRequest{limit("A", domain.SideSell, 2, 100), limit("A", domain.SideSell, 2, 110)},
			wantQty: -4, wantAvg: 105,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaperAdapter(PaperConfig{})
			for _, f := range tt.fills {
				_, err := p.PlaceOrder(context.Background(), f)
				require.NoError(t, err)
			}
			snap, err := p.Positions(context.Background())
			require.NoError(t, err)
			require.Len(t, snap.Positions, 1)
			assert.Equal(t, tt.wantQty, snap.Positions[0].Qty)
			assert.InDelta(t, tt.wantAvg, snap.Positions[0].AvgPrice, 1e-9)
		})
	}
}

func TestPaperAdapter_MarketFillsAtLTP(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	p := NewPaperAdapter(PaperConfig{
		Now:   func() time.Time { return now },
		NewID: func() string { return "paper-1" },
	})

	resp, err := p.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "nse:sbin-eq", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Qty: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "paper-1", resp.OrderID)
	assert.Equal(t, domain.StatusAccepted, resp.Status)
	assert.Equal(t, "NSE:SBIN-EQ", resp.Symbol)
	assert.Equal(t, PaperLTP(symbol.Normalize("NSE:SBIN-EQ", "")), resp.Price)
	assert.Equal(t, now.UnixMilli(), resp.TimestampMs)
}

func TestPaperAdapter_EquityIsCashPlusMarketValue(t *testing.T) {
	p := NewPaperAdapter(PaperConfig{})
	ctx := context.Background()
	_, err := p.PlaceOrder(ctx, limit("BINANCE:BTCUSDT", domain.SideBuy, 2, 90))
	require.NoError(t, err)

	snap, err := p.Positions(ctx)
	require.NoError(t, err)

	wantMV := 2 * PaperLTP(symbol.Normalize("BINANCE:BTCUSDT", ""))
	assert.InDelta(t, wantMV, *snap.MarketValue, 1e-9)
	assert.InDelta(t, *snap.Cash+*snap.MarketValue, *snap.Equity, 1e-9)

	// Reading does not mutate.
	again, err := p.Positions(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, again)
}

func TestPaperAdapter_InvalidOrders(t *testing.T) {
	tests := []struct {
		name string
		req  domain.OrderRequest
	}{
		{"zero qty", domain.OrderRequest{Symbol: "A", Side: domain.SideBuy, Type: domain.OrderTypeMarket}},
		{"negative qty", domain.OrderRequest{Symbol: "A", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Qty: -1}},
		{"bad side", domain.OrderRequest{Symbol: "A", Side: "HOLD", Type: domain.OrderTypeMarket, Qty: 1}},
		{"limit without price", domain.OrderRequest{Symbol: "A", Side: domain.SideBuy, Type: domain.OrderTypeLimit, Qty: 1}},
		{"unknown type", domain.OrderRequest{Symbol: "A", Side: domain.SideBuy, Type: "STOP", Qty: 1}},
	}
	p := NewPaperAdapter(PaperConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.PlaceOrder(context.Background(), tt.req)
			assert.True(t, errors.Is(err, domain.ErrInvalidOrderParameters), "got %v", err)
		})
	}
	assert.Empty(t, p.Orders())
	assert.Equal(t, DefaultSeedCash, p.Cash())
}

func TestPaperAdapter_ConcurrentFills(t *testing.T) {
	p := NewPaperAdapter(PaperConfig{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.PlaceOrder(context.Background(), limit(fmt.Sprintf("S%d", i%5), domain.SideBuy, 1, 10))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, p.Orders(), 50)
	assert.InDelta(t, DefaultSeedCash-500, p.Cash(), 1e-9)
}
