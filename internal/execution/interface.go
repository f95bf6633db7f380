package execution

import (
	"context"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/pkg/symbol"
)

// Adapter is the capability set every broker backend provides.
// Implementations must be safe for concurrent use.
type Adapter interface {
	Name() domain.BrokerName

	// Login establishes a session. Calling it again is a no-op.
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	// LTP returns the last traded price in whatever shape the venue uses;
	// callers run it through price.Extract.
	LTP(ctx context.Context, sym symbol.Canonical) (any, error)

	// PlaceOrder sends a new order. The symbol is already canonical.
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResponse, error)

	// Positions returns a snapshot of the account.
	Positions(ctx context.Context) (domain.Portfolio, error)
}
