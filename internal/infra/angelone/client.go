package angelone

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/price"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

const defaultTimeout = 10 * time.Second

// TokenResolver maps an exchange and trading symbol to the SmartAPI
// instrument token.
type TokenResolver interface {
	SymbolToken(exchange, tradingSymbol string) (string, bool)
}

// Client is the live_a adapter: Angel One SmartAPI over REST.
type Client struct {
	cfg        infra.AngelOneConfig
	baseURL    string
	httpClient *http.Client
	limiters   infra.EndpointLimiters
	tokens     TokenResolver
	validate   *validator.Validate
	now        func() time.Time

	sess    session
	loginMu sync.Mutex
	// Guarded by loginMu.
	loginFailures int
	nextLogin     time.Time
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

// WithTokenResolver supplies instrument tokens. Nil is ignored.
func WithTokenResolver(r TokenResolver) Option {
	return func(c *Client) {
		if r != nil {
			c.tokens = r
		}
	}
}

// WithClock overrides the clock used for TOTP and session expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a SmartAPI client. All four credentials are required.
// No network call happens until Login.
func NewClient(cfg infra.AngelOneConfig, opts ...Option) (*Client, error) {
	var missing []string
	for _, f := range []struct{ v, env string }{
		{cfg.APIKey, "SMARTAPI_API_KEY"},
		{cfg.ClientID, "SMARTAPI_CLIENT_ID"},
		{cfg.Password, "SMARTAPI_PASSWORD"},
		{cfg.TOTPSecret, "SMARTAPI_TOTP_SECRET"},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.env)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: angel one requires %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}

	baseURL := DefaultRestURL
	if cfg.RestURL != "" {
		baseURL = strings.TrimRight(cfg.RestURL, "/")
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiters:   infra.NewSmartAPILimiters(),
		validate:   validator.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() domain.BrokerName { return domain.BrokerLiveA }

// Login opens a session unless a valid one exists.
func (c *Client) Login(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	now := c.now()
	if _, ok := c.sess.bearer(now); ok {
		return nil
	}
	if now.Before(c.nextLogin) {
		return fmt.Errorf("%w: angel one login backing off until %s", domain.ErrBrokerRejected, c.nextLogin.Format(time.RFC3339))
	}

	if err := c.login(ctx, now); err != nil {
		c.loginFailures++
		c.nextLogin = now.Add(infra.LoginBackoff.Delay(c.loginFailures))
		slog.Warn("Angel One login failed",
			slog.Int("failures", c.loginFailures),
			slog.Time("retry_after", c.nextLogin))
		return err
	}
	c.loginFailures = 0
	c.nextLogin = time.Time{}
	return nil
}

func (c *Client) login(ctx context.Context, now time.Time) error {
	code, err := totpCode(c.cfg.TOTPSecret, now)
	if err != nil {
		return err
	}

	var d loginData
	body := loginRequest{ClientCode: c.cfg.ClientID, Password: c.cfg.Password, TOTP: code}
	if err := c.call(ctx, nil, http.MethodPost, pathLogin, "", body, &d); err != nil {
		return fmt.Errorf("angel one login: %w", err)
	}
	if err := c.validate.Struct(d); err != nil {
		return fmt.Errorf("%w: angel one login: %v", domain.ErrBrokerRejected, err)
	}

	c.sess.set(d, now)
	slog.Info("Angel One session opened", slog.String("client_id", c.cfg.ClientID))
	return nil
}

// Logout ends the session. It is a no-op without one.
func (c *Client) Logout(ctx context.Context) error {
	token, ok := c.sess.bearer(c.now())
	if !ok {
		c.sess.clear()
		return nil
	}
	defer c.sess.clear()
	return c.call(ctx, nil, http.MethodPost, pathLogout, token, logoutRequest{ClientCode: c.cfg.ClientID}, nil)
}

// LTP returns the getLtpData payload ({"ltp": ..., "close": ..., ...}).
func (c *Client) LTP(ctx context.Context, sym symbol.Canonical) (any, error) {
	req := ltpRequest{
		Exchange:      sym.Exchange,
		TradingSymbol: sym.Token,
		SymbolToken:   c.symbolToken(sym),
	}
	var data map[string]any
	if err := c.secure(ctx, c.limiters.Market, http.MethodPost, pathLTP, req, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// PlaceOrder places a NORMAL variety DELIVERY order valid for the day.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	if req.Type == domain.OrderTypeLimit && (req.Price == nil || *req.Price <= 0) {
		return domain.OrderResponse{}, fmt.Errorf("%w: LIMIT order needs a price", domain.ErrInvalidOrderParameters)
	}
	if !(req.Qty > 0) || req.Qty != math.Trunc(req.Qty) {
		return domain.OrderResponse{}, fmt.Errorf("%w: quantity must be a positive whole number", domain.ErrInvalidOrderParameters)
	}

	sym := symbol.Normalize(req.Symbol, "")
	limitPrice := 0.0
	if req.Type == domain.OrderTypeLimit {
		limitPrice = *req.Price
	}

	body := placeOrderRequest{
		Variety:         "NORMAL",
		TradingSymbol:   sym.Token,
		SymbolToken:     c.symbolToken(sym),
		TransactionType: string(req.Side),
		Exchange:        sym.Exchange,
		OrderType:       string(req.Type),
		ProductType:     "DELIVERY",
		Duration:        "DAY",
		Price:           strconv.FormatFloat(limitPrice, 'f', -1, 64),
		Quantity:        strconv.FormatInt(int64(req.Qty), 10),
	}

	var d placeOrderData
	if err := c.secure(ctx, c.limiters.Order, http.MethodPost, pathOrder, body, &d); err != nil {
		return domain.OrderResponse{}, err
	}
	if err := c.validate.Struct(d); err != nil {
		return domain.OrderResponse{}, fmt.Errorf("%w: angel one order: %v", domain.ErrBrokerRejected, err)
	}

	slog.Info("Angel One order placed",
		slog.String("order_id", d.OrderID),
		slog.String("symbol", sym.Combined),
		slog.String("side", string(req.Side)))

	return domain.OrderResponse{
		OrderID:     d.OrderID,
		Status:      domain.StatusAccepted,
		Symbol:      sym.Combined,
		Side:        req.Side,
		Price:       limitPrice,
		Qty:         req.Qty,
		TimestampMs: c.now().UnixMilli(),
	}, nil
}

// Positions maps getPosition rows to views. SmartAPI reports no cash here.
func (c *Client) Positions(ctx context.Context) (domain.Portfolio, error) {
	var rows []map[string]any
	if err := c.secure(ctx, c.limiters.Account, http.MethodGet, pathPositions, nil, &rows); err != nil {
		return domain.Portfolio{}, err
	}

	views := make([]domain.PositionView, 0, len(rows))
	for _, row := range rows {
		exchange, _ := row["exchange"].(string)
		ts, _ := row["tradingsymbol"].(string)
		qty, qerr := price.Extract(row["netqty"])
		avg, aerr := price.Extract(row["avgnetprice"])
		if err := errors.Join(qerr, aerr); err != nil {
			slog.Warn("Skipping unreadable SmartAPI position",
				slog.String("exchange", exchange),
				slog.String("tradingsymbol", ts),
				slog.Any("netqty", row["netqty"]),
				slog.Any("avgnetprice", row["avgnetprice"]),
				slog.String("error", err.Error()))
			continue
		}
		views = append(views, domain.PositionView{
			Symbol:   symbol.Normalize(exchange+":"+ts, "").Combined,
			Qty:      qty,
			AvgPrice: avg,
			Raw:      row,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Symbol < views[j].Symbol })
	return domain.Portfolio{Positions: views}, nil
}

func (c *Client) symbolToken(sym symbol.Canonical) string {
	if c.tokens == nil {
		return ""
	}
	tok, _ := c.tokens.SymbolToken(sym.Exchange, sym.Token)
	return tok
}

// secure makes an authenticated call, logging in first when the session
// is missing or about to expire.
func (c *Client) secure(ctx context.Context, lim *infra.RateLimiter, method, path string, body, out any) error {
	token, ok := c.sess.bearer(c.now())
	if !ok {
		if err := c.Login(ctx); err != nil {
			return err
		}
		if token, ok = c.sess.bearer(c.now()); !ok {
			return fmt.Errorf("%w: angel one session expired immediately", domain.ErrBrokerRejected)
		}
	}
	return c.call(ctx, lim, method, path, token, body, out)
}

// call sends one request and unwraps the SmartAPI envelope into out.
// status=false and HTTP errors become ErrBrokerRejected.
func (c *Client) call(ctx context.Context, lim *infra.RateLimiter, method, path, token string, body, out any) error {
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("angel one %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("angel one read body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.sess.clear()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: angel one %s: http %d", domain.ErrBrokerRejected, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("angel one decode %s: %w", path, err)
	}
	if !env.Status {
		return fmt.Errorf("%w: angel one %s: %s (%s)", domain.ErrBrokerRejected, path, env.Message, env.ErrorCode)
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("angel one decode %s data: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	publicIP := c.cfg.PublicIP
	if publicIP == "" {
		publicIP = "127.0.0.1"
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-ClientLocalIP", "127.0.0.1")
	req.Header.Set("X-ClientPublicIP", publicIP)
	req.Header.Set("X-MACAddress", "00:00:00:00:00:00")
	req.Header.Set("X-PrivateKey", c.cfg.APIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
