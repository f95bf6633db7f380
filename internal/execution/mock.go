package execution

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

// ScriptedAdapter is a safe adapter that never leaves the process.
// Each operation returns its scripted value, or fails with the scripted
// error, after an optional delay. Unscripted operations succeed with
// plausible values. It backs --dry-run and the gateway tests.
type ScriptedAdapter struct {
	BrokerName domain.BrokerName

	mu        sync.Mutex
	ltp       any
	ltpErr    error
	order     *domain.OrderResponse
	orderErr  error
	portfolio domain.Portfolio
	posErr    error
	delay     time.Duration
	placed    []domain.OrderRequest

	ltpCalls   atomic.Int64
	orderCalls atomic.Int64
	posCalls   atomic.Int64
	loggedIn   atomic.Bool
}

// NewScriptedAdapter creates a scripted adapter answering as name.
func NewScriptedAdapter(name domain.BrokerName) *ScriptedAdapter {
	return &ScriptedAdapter{BrokerName: name}
}

// WithLTP scripts the raw LTP payload.
func (m *ScriptedAdapter) WithLTP(v any) *ScriptedAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ltp = v
	return m
}

// WithOrderResponse scripts the raw order response.
func (m *ScriptedAdapter) WithOrderResponse(resp domain.OrderResponse) *ScriptedAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = &resp
	return m
}

// WithPortfolio scripts the positions snapshot.
func (m *ScriptedAdapter) WithPortfolio(p domain.Portfolio) *ScriptedAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolio = p
	return m
}

// FailWith makes every operation fail with err (nil clears it).
func (m *ScriptedAdapter) FailWith(err error) *ScriptedAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ltpErr, m.orderErr, m.posErr = err, err, err
	return m
}

// FailOrdersWith makes only PlaceOrder fail.
func (m *ScriptedAdapter) FailOrdersWith(err error) *ScriptedAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderErr = err
	return m
}

// WithDelay holds every call for d, or until ctx is done.
func (m *ScriptedAdapter) WithDelay(d time.Duration) *ScriptedAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

func (m *ScriptedAdapter) Name() domain.BrokerName { return m.BrokerName }

func (m *ScriptedAdapter) Login(ctx context.Context) error {
	m.loggedIn.Store(true)
	return nil
}

func (m *ScriptedAdapter) Logout(ctx context.Context) error {
	m.loggedIn.Store(false)
	return nil
}

// LoggedIn reports whether Login was called more recently than Logout.
func (m *ScriptedAdapter) LoggedIn() bool { return m.loggedIn.Load() }

func (m *ScriptedAdapter) LTP(ctx context.Context, sym symbol.Canonical) (any, error) {
	m.ltpCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ltpErr != nil {
		return nil, m.ltpErr
	}
	if m.ltp != nil {
		return m.ltp, nil
	}
	return map[string]any{"ltp": PaperLTP(sym)}, nil
}

func (m *ScriptedAdapter) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error) {
	m.orderCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return domain.OrderResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return domain.OrderResponse{}, m.orderErr
	}
	m.placed = append(m.placed, req)

	slog.Info("MOCK EXECUTION: Submit Order",
		slog.String("broker", string(m.BrokerName)),
		slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)),
		slog.Float64("qty", req.Qty))

	if m.order != nil {
		return *m.order, nil
	}
	return domain.OrderResponse{
		OrderID: "mock-" + uuid.NewString(),
		Status:  domain.StatusAccepted,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Qty:     req.Qty,
		Message: "dry run",
	}, nil
}

func (m *ScriptedAdapter) Positions(ctx context.Context) (domain.Portfolio, error) {
	m.posCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return domain.Portfolio{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.posErr != nil {
		return domain.Portfolio{}, m.posErr
	}
	p := m.portfolio
	if p.Positions == nil {
		p.Positions = []domain.PositionView{}
	}
	return p, nil
}

// Placed returns the accepted order requests in arrival order.
func (m *ScriptedAdapter) Placed() []domain.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.OrderRequest, len(m.placed))
	copy(out, m.placed)
	return out
}

// Calls returns how often each operation was invoked.
func (m *ScriptedAdapter) Calls() (ltp, orders, positions int64) {
	return m.ltpCalls.Load(), m.orderCalls.Load(), m.posCalls.Load()
}

func (m *ScriptedAdapter) wait(ctx context.Context) error {
	m.mu.Lock()
	d := m.delay
	m.mu.Unlock()
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
