package execution

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

// DefaultSeedCash is the opening cash of a paper ledger.
const DefaultSeedCash = 100_000.0

// PaperConfig configures a PaperAdapter. Zero values pick defaults.
type PaperConfig struct {
	SeedCash float64
	Now      func() time.Time
	NewID    func() string
}

type ledgerPosition struct {
	qty      decimal.Decimal
	avgPrice decimal.Decimal
}

// apply books a signed fill (BUY positive, SELL negative).
func (p *ledgerPosition) apply(signed, price decimal.Decimal) {
	next := p.qty.Add(signed)

	switch {
	case next.IsZero():
		p.avgPrice = decimal.Zero
	case p.qty.IsZero() || p.qty.Sign() == signed.Sign():
		// Opening or adding: quantity-weighted average.
		cost := p.qty.Abs().Mul(p.avgPrice).Add(signed.Abs().Mul(price))
		p.avgPrice = cost.Div(next.Abs())
	case next.Sign() != p.qty.Sign():
		// Crossed through zero; the remainder was opened at this price.
		p.avgPrice = price
	}
	// Reducing without crossing keeps the average.

	p.qty = next
}

// PaperAdapter simulates order execution against an in-memory ledger.
// Fills are immediate and never rejected for lack of cash.
type PaperAdapter struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]*ledgerPosition
	orders    []domain.OrderRecord

	now   func() time.Time
	newID func() string
}

// NewPaperAdapter creates a paper ledger seeded with cfg.SeedCash.
func NewPaperAdapter(cfg PaperConfig) *PaperAdapter {
	if cfg.SeedCash <= 0 {
		cfg.SeedCash = DefaultSeedCash
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &PaperAdapter{
		cash:      decimal.NewFromFloat(cfg.SeedCash),
		positions: make(map[string]*ledgerPosition),
		now:       cfg.Now,
		newID:     cfg.NewID,
	}
}

func (p *PaperAdapter) Name() domain.BrokerName { return domain.BrokerPaper }

func (p *PaperAdapter) Login(ctx context.Context) error  { return nil }
func (p *PaperAdapter) Logout(ctx context.Context) error { return nil }

// PaperLTP is the deterministic simulated price of a symbol:
// 100 + (fnv32a(combined) % 500) / 10, so always within [100, 149.9].
func PaperLTP(sym symbol.Canonical) float64 {
	h := fnv.New32a()
	h.Write([]byte(sym.Combined))
	tenths := decimal.NewFromInt(int64(h.Sum32() % 500))
	return decimal.NewFromInt(100).Add(tenths.Shift(-1)).Round(2).InexactFloat64()
}

// LTP returns {"symbol": ..., "ltp": ...}.
func (p *PaperAdapter) LTP(ctx context.Context, sym symbol.Canonical) (any, error) {
	return map[string]any{
		"symbol": sym.Combined,
		"ltp":    PaperLTP(sym),
	}, nil
}

// PlaceOrder fills immediately: MARKET at the simulated LTP, LIMIT at the
// limit price.
func (p *PaperAdapter) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	if err := validatePaperOrder(req); err != nil {
		return domain.OrderResponse{}, err
	}

	sym := symbol.Normalize(req.Symbol, "")
	fillPrice := PaperLTP(sym)
	if req.Type == domain.OrderTypeLimit {
		fillPrice = *req.Price
	}

	px := decimal.NewFromFloat(fillPrice)
	qty := decimal.NewFromFloat(req.Qty)
	notional := px.Mul(qty)

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[sym.Combined]
	if !ok {
		pos = &ledgerPosition{}
		p.positions[sym.Combined] = pos
	}

	signed := qty
	if req.Side == domain.SideBuy {
		p.cash = p.cash.Sub(notional)
	} else {
		p.cash = p.cash.Add(notional)
		signed = qty.Neg()
	}
	pos.apply(signed, px)

	rec := domain.OrderRecord{
		ID:          p.newID(),
		Symbol:      sym.Combined,
		Side:        req.Side,
		Type:        req.Type,
		Qty:         req.Qty,
		Price:       fillPrice,
		TimestampMs: p.now().UnixMilli(),
	}
	p.orders = append(p.orders, rec)

	slog.Info("PAPER EXECUTION: Order Filled",
		slog.String("id", rec.ID),
		slog.String("symbol", rec.Symbol),
		slog.String("side", string(rec.Side)),
		slog.Float64("price", rec.Price),
		slog.Float64("qty", rec.Qty))

	return domain.OrderResponse{
		OrderID:     rec.ID,
		Status:      domain.StatusAccepted,
		Symbol:      rec.Symbol,
		Side:        rec.Side,
		Price:       rec.Price,
		Qty:         rec.Qty,
		TimestampMs: rec.TimestampMs,
	}, nil
}

func validatePaperOrder(req domain.OrderRequest) error {
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return fmt.Errorf("%w: side %q", domain.ErrInvalidOrderParameters, req.Side)
	}
	if !(req.Qty > 0) || math.IsInf(req.Qty, 0) {
		return fmt.Errorf("%w: qty must be positive", domain.ErrInvalidOrderParameters)
	}
	switch req.Type {
	case domain.OrderTypeMarket:
	case domain.OrderTypeLimit:
		if req.Price == nil || !(*req.Price > 0) || math.IsInf(*req.Price, 0) {
			return fmt.Errorf("%w: LIMIT order needs a positive price", domain.ErrInvalidOrderParameters)
		}
	default:
		return fmt.Errorf("%w: order type %q", domain.ErrInvalidOrderParameters, req.Type)
	}
	return nil
}

// Positions returns cash, every touched symbol sorted by name, market value
// at simulated prices, and equity. The ledger is not modified.
func (p *PaperAdapter) Positions(ctx context.Context) (domain.Portfolio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.positions))
	for name := range p.positions {
		names = append(names, name)
	}
	sort.Strings(names)

	views := make([]domain.PositionView, 0, len(names))
	mv := decimal.Zero
	for _, name := range names {
		pos := p.positions[name]
		ltp := decimal.NewFromFloat(PaperLTP(symbol.Normalize(name, "")))
		mv = mv.Add(ltp.Mul(pos.qty))
		views = append(views, domain.PositionView{
			Symbol:   name,
			Qty:      pos.qty.InexactFloat64(),
			AvgPrice: pos.avgPrice.Round(8).InexactFloat64(),
		})
	}

	cash := p.cash.InexactFloat64()
	marketValue := mv.InexactFloat64()
	equity := p.cash.Add(mv).InexactFloat64()
	return domain.Portfolio{
		Cash:        &cash,
		Positions:   views,
		MarketValue: &marketValue,
		Equity:      &equity,
	}, nil
}

// Orders returns a copy of every fill so far, oldest first.
func (p *PaperAdapter) Orders() []domain.OrderRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderRecord, len(p.orders))
	copy(out, p.orders)
	return out
}

// Cash returns the current cash balance.
func (p *PaperAdapter) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash.InexactFloat64()
}
