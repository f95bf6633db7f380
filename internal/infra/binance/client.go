package binance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

// Client is the live_b adapter: Binance REST, spot or USD-M futures.
type Client struct {
	signer     *Signer
	baseURL    string
	futures    bool
	paths      endpoints
	httpClient *http.Client
	limiters   infra.EndpointLimiters
	validate   *validator.Validate
	now        func() time.Time
	closed     atomic.Bool
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Nil is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at another host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithClock overrides the timestamp source used for signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Binance REST client. Both keys are required.
func NewClient(cfg infra.BinanceConfig, opts ...Option) (*Client, error) {
	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, "BINANCE_API_KEY")
	}
	if cfg.SecretKey == "" {
		missing = append(missing, "BINANCE_API_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: binance requires %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}

	c := &Client{
		signer:     NewSigner(cfg.APIKey, cfg.SecretKey),
		baseURL:    baseURLFor(cfg),
		futures:    cfg.UseFutures,
		paths:      spotEndpoints,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiters:   infra.NewBinanceLimiters(),
		validate:   validator.New(),
		now:        time.Now,
	}
	if cfg.UseFutures {
		c.paths = futuresEndpoints
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func baseURLFor(cfg infra.BinanceConfig) string {
	if cfg.RestURL != "" {
		return strings.TrimRight(cfg.RestURL, "/")
	}
	switch {
	case cfg.UseFutures && cfg.Testnet:
		return FuturesTestnetURL
	case cfg.UseFutures:
		return FuturesMainnetURL
	case cfg.Testnet:
		return SpotTestnetURL
	default:
		return SpotMainnetURL
	}
}

func (c *Client) Name() domain.BrokerName { return domain.BrokerLiveB }

// Login is a no-op: every private request is signed individually.
func (c *Client) Login(ctx context.Context) error { return nil }

// Logout wipes the keys. The client is unusable afterwards.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.CompareAndSwap(false, true) {
		c.signer.Wipe()
	}
	return nil
}

// venueSymbol maps "BINANCE:BTCUSDT" or "BINANCE:BTC/USDT" to "BTCUSDT".
func venueSymbol(sym symbol.Canonical) string {
	return strings.NewReplacer("/", "", "-", "").Replace(sym.Token)
}

// LTP returns {"symbol": ..., "price": "<decimal string>"}.
func (c *Client) LTP(ctx context.Context, sym symbol.Canonical) (any, error) {
	params := url.Values{}
	params.Set("symbol", venueSymbol(sym))

	var tp tickerPrice
	if err := c.do(ctx, c.limiters.Market, http.MethodGet, c.paths.ticker, params, false, &tp); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(tp); err != nil {
		return nil, fmt.Errorf("binance ticker: %w", err)
	}
	return map[string]any{"symbol": tp.Symbol, "price": tp.Price}, nil
}

// PlaceOrder submits a MARKET or LIMIT (GTC) order. A terminal
// non-success status on a 2xx answer is reported as ErrBrokerRejected.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	if req.Type == domain.OrderTypeLimit && (req.Price == nil || *req.Price <= 0) {
		return domain.OrderResponse{}, fmt.Errorf("%w: LIMIT order needs a price", domain.ErrInvalidOrderParameters)
	}
	if !(req.Qty > 0) {
		return domain.OrderResponse{}, fmt.Errorf("%w: qty must be positive", domain.ErrInvalidOrderParameters)
	}

	sym := symbol.Normalize(req.Symbol, "BINANCE")
	params := url.Values{}
	params.Set("symbol", venueSymbol(sym))
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("quantity", strconv.FormatFloat(req.Qty, 'f', -1, 64))
	if req.Type == domain.OrderTypeLimit {
		params.Set("price", strconv.FormatFloat(*req.Price, 'f', -1, 64))
		params.Set("timeInForce", "GTC")
	}

	var or orderResponse
	if err := c.do(ctx, c.limiters.Order, http.MethodPost, c.paths.order, params, true, &or); err != nil {
		return domain.OrderResponse{}, err
	}
	if err := c.validate.Struct(or); err != nil {
		return domain.OrderResponse{}, fmt.Errorf("binance order: %w", err)
	}
	status := mapStatus(or.Status)
	if status == domain.StatusRejected {
		return domain.OrderResponse{}, fmt.Errorf("%w: binance order %d %s", domain.ErrBrokerRejected, or.OrderID, or.Status)
	}

	slog.Info("Binance order placed",
		slog.String("symbol", or.Symbol),
		slog.Int64("order_id", or.OrderID),
		slog.String("status", or.Status))

	ts := or.TransactTime
	if ts == 0 {
		ts = or.UpdateTime
	}
	return domain.OrderResponse{
		OrderID:     strconv.FormatInt(or.OrderID, 10),
		Status:      status,
		Symbol:      sym.Combined,
		Side:        req.Side,
		Price:       fillPrice(or),
		Qty:         parseFloat(or.OrigQty),
		TimestampMs: ts,
		Message:     or.Status,
	}, nil
}

func mapStatus(s string) string {
	switch strings.ToUpper(s) {
	case "NEW", "PARTIALLY_FILLED", "FILLED":
		return domain.StatusAccepted
	case "PENDING_NEW":
		return domain.StatusPending
	case "REJECTED", "EXPIRED", "EXPIRED_IN_MATCH", "CANCELED":
		return domain.StatusRejected
	default:
		return strings.ToUpper(s)
	}
}

func fillPrice(or orderResponse) float64 {
	if p := parseFloat(or.AvgPrice); p > 0 {
		return p
	}
	return parseFloat(or.Price)
}

func parseFloat(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// Positions returns non-zero spot balances or futures positions.
// Binance reports no cash figure comparable to the paper ledger.
func (c *Client) Positions(ctx context.Context) (domain.Portfolio, error) {
	if c.futures {
		return c.futuresPositions(ctx)
	}
	return c.spotPositions(ctx)
}

func (c *Client) spotPositions(ctx context.Context) (domain.Portfolio, error) {
	var acct spotAccount
	if err := c.do(ctx, c.limiters.Account, http.MethodGet, c.paths.positions, url.Values{}, true, &acct); err != nil {
		return domain.Portfolio{}, err
	}

	views := make([]domain.PositionView, 0, len(acct.Balances))
	for _, b := range acct.Balances {
		free, _ := decimal.NewFromString(b.Free)
		locked, _ := decimal.NewFromString(b.Locked)
		total := free.Add(locked)
		if total.IsZero() {
			continue
		}
		views = append(views, domain.PositionView{
			Symbol: "BINANCE:" + b.Asset,
			Qty:    total.InexactFloat64(),
			Raw:    map[string]any{"asset": b.Asset, "free": b.Free, "locked": b.Locked},
		})
	}
	sortViews(views)
	return domain.Portfolio{Positions: views}, nil
}

func (c *Client) futuresPositions(ctx context.Context) (domain.Portfolio, error) {
	var rows []futuresPosition
	if err := c.do(ctx, c.limiters.Account, http.MethodGet, c.paths.positions, url.Values{}, true, &rows); err != nil {
		return domain.Portfolio{}, err
	}

	views := make([]domain.PositionView, 0, len(rows))
	for _, r := range rows {
		amt, _ := decimal.NewFromString(r.PositionAmt)
		if amt.IsZero() {
			continue
		}
		views = append(views, domain.PositionView{
			Symbol:   "BINANCE:" + r.Symbol,
			Qty:      amt.InexactFloat64(),
			AvgPrice: parseFloat(r.EntryPrice),
			Raw: map[string]any{
				"markPrice":        r.MarkPrice,
				"unRealizedProfit": r.UnRealizedProfit,
				"leverage":         r.Leverage,
			},
		})
	}
	sortViews(views)
	return domain.Portfolio{Positions: views}, nil
}

func sortViews(v []domain.PositionView) {
	sort.Slice(v, func(i, j int) bool { return v[i].Symbol < v[j].Symbol })
}

// do performs one REST call and decodes a 2xx body into out.
// Non-2xx answers become ErrBrokerRejected carrying Binance's code and msg.
func (c *Client) do(ctx context.Context, lim *infra.RateLimiter, method, path string, params url.Values, signed bool, out any) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: binance client is logged out", domain.ErrConfiguration)
	}
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}

	query := params.Encode()
	if signed {
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		params.Set("recvWindow", recvWindow)
		query = c.signer.Sign(params)
	}

	u := c.baseURL + path
	if query != "" {
		u += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.signer.APIKey())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("binance %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("binance read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ae apiError
		_ = json.Unmarshal(body, &ae)
		return fmt.Errorf("%w: binance %s: http %d code=%d msg=%s",
			domain.ErrBrokerRejected, path, resp.StatusCode, ae.Code, ae.Msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("binance decode %s: %w", path, err)
	}
	return nil
}
