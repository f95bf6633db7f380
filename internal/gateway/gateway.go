package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/execution"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/storage"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/symbols"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/price"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

const DefaultCallTimeout = 10 * time.Second

// BrokerResolver picks the concrete broker for a request.
type BrokerResolver interface {
	Resolve(requested string, marketOpen *bool) (domain.BrokerName, error)
	KillSwitch() bool
}

// AdapterSource hands out ready (logged in) adapters by name.
type AdapterSource interface {
	Get(ctx context.Context, name domain.BrokerName) (execution.Adapter, error)
}

// SymbolSource lists the instruments a broker offers.
type SymbolSource interface {
	List(broker domain.BrokerName) ([]symbols.Item, error)
}

// Journal receives every newly accepted order.
type Journal interface {
	RecordOrder(ctx context.Context, e storage.OrderEntry) error
}

// Config tunes the gateway. Zero values take the defaults.
type Config struct {
	FailureThreshold int
	ResetWindow      time.Duration
	CallTimeout      time.Duration
	DefaultExchange  string
	Now              func() time.Time
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithJournal records accepted orders to j.
func WithJournal(j Journal) Option {
	return func(g *Gateway) { g.journal = j }
}

// WithSymbols enables ListSymbols.
func WithSymbols(s SymbolSource) Option {
	return func(g *Gateway) { g.symbols = s }
}

// Gateway routes price, order and position requests to a broker adapter,
// guarding each broker with its own circuit breaker and deduplicating
// orders by request id.
type Gateway struct {
	cfg      Config
	resolver BrokerResolver
	adapters AdapterSource
	symbols  SymbolSource
	journal  Journal
	idem     *IdempotencyStore
	validate *validator.Validate

	mu       sync.Mutex
	breakers map[domain.BrokerName]*infra.CircuitBreaker
}

// New creates a gateway.
func New(cfg Config, resolver BrokerResolver, adapters AdapterSource, opts ...Option) *Gateway {
	def := infra.DefaultCircuitBreakerConfig("")
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = def.ResetWindow
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.DefaultExchange == "" {
		cfg.DefaultExchange = symbol.DefaultExchange
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	g := &Gateway{
		cfg:      cfg,
		resolver: resolver,
		adapters: adapters,
		idem:     NewIdempotencyStore(),
		validate: validator.New(),
		breakers: make(map[domain.BrokerName]*infra.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PriceRequest asks for the last traded price of Symbol.
type PriceRequest struct {
	Symbol     string
	Broker     string
	MarketOpen *bool
}

// PriceQuote is a normalized price answer.
type PriceQuote struct {
	Broker      domain.BrokerName `json:"broker"`
	Symbol      string            `json:"symbol"`
	Price       float64           `json:"price"`
	TimestampMs int64             `json:"timestampMs"`
}

// OrderCommand is an order placement request. RequestID is mandatory.
type OrderCommand struct {
	RequestID  string
	Symbol     string  `validate:"required"`
	Side       string  `validate:"required"`
	Qty        float64 `validate:"gt=0"`
	Type       string
	Price      *float64 `validate:"omitempty,gt=0"`
	Broker     string
	MarketOpen *bool
}

// OrderAck is returned to the caller of PlaceOrder.
type OrderAck struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Selector chooses a broker for account-level requests.
type Selector struct {
	Broker     string
	MarketOpen *bool
}

// SymbolList is the instrument catalog of one broker.
type SymbolList struct {
	Broker domain.BrokerName `json:"broker"`
	Items  []symbols.Item    `json:"items"`
}

// HealthReport summarizes circuit state.
type HealthReport struct {
	Status       string   `json:"status"`
	Mode         string   `json:"mode"`
	OpenCircuits []string `json:"openCircuits"`
}

// GetPrice resolves the broker and returns its LTP for req.Symbol.
func (g *Gateway) GetPrice(ctx context.Context, req PriceRequest) (PriceQuote, error) {
	name, err := g.resolver.Resolve(req.Broker, req.MarketOpen)
	if err != nil {
		return PriceQuote{}, err
	}
	sym := symbol.Normalize(req.Symbol, g.cfg.DefaultExchange)

	var raw any
	err = g.invoke(ctx, name, "ltp", func(callCtx context.Context, a execution.Adapter) error {
		var err error
		raw, err = a.LTP(callCtx, sym)
		return err
	})
	if err != nil {
		return PriceQuote{}, err
	}

	p, err := price.Extract(raw)
	if err != nil {
		slog.Error("Unexpected price payload",
			slog.String("broker", string(name)),
			slog.String("symbol", sym.Combined),
			slog.Any("payload", raw))
		return PriceQuote{}, fmt.Errorf("ltp %s from %s: %w", sym.Combined, name, err)
	}

	return PriceQuote{
		Broker:      name,
		Symbol:      sym.Combined,
		Price:       p,
		TimestampMs: g.cfg.Now().UnixMilli(),
	}, nil
}

// PlaceOrder places cmd at most once per RequestID. A repeated id returns
// the stored response without contacting the broker. Failed attempts are
// not stored, so the same id may be retried.
func (g *Gateway) PlaceOrder(ctx context.Context, cmd OrderCommand) (OrderAck, error) {
	if strings.TrimSpace(cmd.RequestID) == "" {
		return OrderAck{}, domain.ErrMissingIdempotencyKey
	}
	req, err := g.orderRequest(cmd)
	if err != nil {
		return OrderAck{}, err
	}

	name, err := g.resolver.Resolve(cmd.Broker, cmd.MarketOpen)
	if err != nil {
		return OrderAck{}, err
	}

	if resp, ok := g.idem.TryGet(cmd.RequestID); ok {
		logReplay(cmd.RequestID, resp)
		return ackFrom(resp), nil
	}

	placed := false
	resp, _, err := g.idem.Do(cmd.RequestID, func() (domain.OrderResponse, error) {
		// A previous flight may have completed between TryGet and Do.
		if resp, ok := g.idem.TryGet(cmd.RequestID); ok {
			return resp, nil
		}
		placed = true
		return g.placeOnce(ctx, name, cmd.RequestID, req)
	})
	if err != nil {
		return OrderAck{}, err
	}
	if !placed {
		logReplay(cmd.RequestID, resp)
	}
	return ackFrom(resp), nil
}

func logReplay(requestID string, resp domain.OrderResponse) {
	slog.Debug("Order replayed from idempotency store",
		slog.String("request_id", requestID),
		slog.String("order_id", resp.OrderID))
}

func (g *Gateway) placeOnce(ctx context.Context, name domain.BrokerName, requestID string, req domain.OrderRequest) (domain.OrderResponse, error) {
	var resp domain.OrderResponse
	err := g.invoke(ctx, name, "place_order", func(callCtx context.Context, a execution.Adapter) error {
		var err error
		resp, err = a.PlaceOrder(callCtx, req)
		if err == nil && strings.EqualFold(strings.TrimSpace(resp.Status), domain.StatusRejected) {
			return fmt.Errorf("%w: order %s: %s", domain.ErrBrokerRejected, resp.OrderID, resp.Message)
		}
		return err
	})
	if err != nil {
		slog.Warn("Order failed",
			slog.String("broker", string(name)),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return domain.OrderResponse{}, err
	}

	resp = g.normalizeResponse(resp, req)
	stored := g.idem.Put(requestID, resp)

	slog.Info("Order accepted",
		slog.String("broker", string(name)),
		slog.String("request_id", requestID),
		slog.String("order_id", stored.OrderID),
		slog.String("status", stored.Status))

	if g.journal != nil {
		entry := storage.OrderEntry{RequestID: requestID, Broker: name, Response: stored, RecordedAtMs: g.cfg.Now().UnixMilli()}
		if err := g.journal.RecordOrder(context.WithoutCancel(ctx), entry); err != nil {
			slog.Error("Failed to journal order", slog.String("request_id", requestID), slog.String("error", err.Error()))
		}
	}
	return stored, nil
}

// GetPositions returns the resolved broker's portfolio.
func (g *Gateway) GetPositions(ctx context.Context, sel Selector) (domain.Portfolio, error) {
	name, err := g.resolver.Resolve(sel.Broker, sel.MarketOpen)
	if err != nil {
		return domain.Portfolio{}, err
	}

	var p domain.Portfolio
	err = g.invoke(ctx, name, "positions", func(callCtx context.Context, a execution.Adapter) error {
		var err error
		p, err = a.Positions(callCtx)
		return err
	})
	if err != nil {
		return domain.Portfolio{}, err
	}
	if p.Positions == nil {
		p.Positions = []domain.PositionView{}
	}
	return p, nil
}

// ListSymbols returns the resolved broker's instrument list.
func (g *Gateway) ListSymbols(ctx context.Context, sel Selector) (SymbolList, error) {
	name, err := g.resolver.Resolve(sel.Broker, sel.MarketOpen)
	if err != nil {
		return SymbolList{}, err
	}
	if g.symbols == nil {
		return SymbolList{Broker: name, Items: []symbols.Item{}}, nil
	}
	items, err := g.symbols.List(name)
	if err != nil {
		return SymbolList{}, err
	}
	return SymbolList{Broker: name, Items: items}, nil
}

// Mode is "paper" while the kill switch is engaged, otherwise "live".
func (g *Gateway) Mode() string {
	if g.resolver.KillSwitch() {
		return "paper"
	}
	return "live"
}

// Health reports "degraded" while any broker circuit is open.
func (g *Gateway) Health() HealthReport {
	g.mu.Lock()
	names := make([]domain.BrokerName, 0, len(g.breakers))
	cbs := make([]*infra.CircuitBreaker, 0, len(g.breakers))
	for n, cb := range g.breakers {
		names = append(names, n)
		cbs = append(cbs, cb)
	}
	g.mu.Unlock()

	open := []string{}
	for i, cb := range cbs {
		if cb.GetState() == infra.StateOpen {
			open = append(open, string(names[i]))
		}
	}
	sort.Strings(open)

	status := "ok"
	if len(open) > 0 {
		status = "degraded"
	}
	return HealthReport{Status: status, Mode: g.Mode(), OpenCircuits: open}
}

// Breaker returns the circuit breaker guarding name, creating it on first use.
func (g *Gateway) Breaker(name domain.BrokerName) *infra.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[name]
	if !ok {
		cb = infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
			Name:             "broker:" + string(name),
			FailureThreshold: g.cfg.FailureThreshold,
			ResetWindow:      g.cfg.ResetWindow,
			Now:              g.cfg.Now,
		})
		g.breakers[name] = cb
	}
	return cb
}

// IdempotencyEntries returns how many order responses are remembered.
func (g *Gateway) IdempotencyEntries() int { return g.idem.Len() }

// invoke runs call against name's adapter behind its circuit breaker.
// The call gets its own deadline and is not cancelled with ctx.
func (g *Gateway) invoke(ctx context.Context, name domain.BrokerName, op string, call func(context.Context, execution.Adapter) error) error {
	cb := g.Breaker(name)
	if !cb.Allow() {
		return fmt.Errorf("%w: %s until %s", domain.ErrCircuitOpen, name, cb.OpenUntil().Format(time.RFC3339))
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.CallTimeout)
	defer cancel()

	a, err := g.adapters.Get(callCtx, name)
	if err == nil {
		err = call(callCtx, a)
	}
	if err != nil {
		err = wrapBrokerError(name, op, callCtx, g.cfg.CallTimeout, err)
		if countsAgainstCircuit(err) {
			cb.RecordFailure()
		}
		return err
	}

	cb.RecordSuccess()
	return nil
}

func (g *Gateway) orderRequest(cmd OrderCommand) (domain.OrderRequest, error) {
	if err := g.validate.Struct(cmd); err != nil {
		return domain.OrderRequest{}, fmt.Errorf("%w: %v", domain.ErrInvalidOrderParameters, err)
	}
	if math.IsInf(cmd.Qty, 0) {
		return domain.OrderRequest{}, fmt.Errorf("%w: qty must be finite", domain.ErrInvalidOrderParameters)
	}
	side, ok := domain.ParseSide(cmd.Side)
	if !ok {
		return domain.OrderRequest{}, fmt.Errorf("%w: side %q", domain.ErrInvalidOrderParameters, cmd.Side)
	}
	typ, ok := domain.ParseOrderType(cmd.Type)
	if !ok {
		return domain.OrderRequest{}, fmt.Errorf("%w: order type %q", domain.ErrInvalidOrderParameters, cmd.Type)
	}

	req := domain.OrderRequest{
		Symbol: symbol.Normalize(cmd.Symbol, g.cfg.DefaultExchange).Combined,
		Side:   side,
		Type:   typ,
		Qty:    cmd.Qty,
	}
	if typ == domain.OrderTypeLimit {
		if cmd.Price == nil {
			return domain.OrderRequest{}, fmt.Errorf("%w: LIMIT order needs a price", domain.ErrInvalidOrderParameters)
		}
		p := *cmd.Price
		req.Price = &p
	}
	return req, nil
}

// normalizeResponse fills what an adapter left out: an order id, an
// upper-case status (ACCEPTED by default) and the request echo fields.
func (g *Gateway) normalizeResponse(resp domain.OrderResponse, req domain.OrderRequest) domain.OrderResponse {
	if strings.TrimSpace(resp.OrderID) == "" {
		resp.OrderID = uuid.NewString()
	}
	resp.Status = strings.ToUpper(strings.TrimSpace(resp.Status))
	if resp.Status == "" {
		resp.Status = domain.StatusAccepted
	}
	if resp.Symbol == "" {
		resp.Symbol = req.Symbol
	}
	if resp.Side == "" {
		resp.Side = req.Side
	}
	if resp.Qty == 0 {
		resp.Qty = req.Qty
	}
	if resp.TimestampMs == 0 {
		resp.TimestampMs = g.cfg.Now().UnixMilli()
	}
	return resp
}

func ackFrom(resp domain.OrderResponse) OrderAck {
	return OrderAck{OrderID: resp.OrderID, Status: resp.Status, Message: resp.Message}
}

// IsRetryable reports whether the caller may retry err later with the
// same request id.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrCircuitOpen) || errors.Is(err, domain.ErrBrokerTimeout) ||
		(errors.Is(err, domain.ErrBroker) && countsAgainstCircuit(err))
}
