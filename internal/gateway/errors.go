package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
)

// wrapBrokerError attaches broker and operation to an adapter failure.
// A deadline hit on the call context becomes ErrBrokerTimeout.
func wrapBrokerError(name domain.BrokerName, op string, callCtx context.Context, timeout time.Duration, err error) error {
	var be *domain.BrokerError
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", domain.ErrBrokerTimeout, timeout, err)
	}
	return &domain.BrokerError{Broker: name, Op: op, Err: err}
}

// countsAgainstCircuit reports whether err says something about the broker's
// health. Request mistakes and missing credentials do not.
func countsAgainstCircuit(err error) bool {
	return !domain.IsClientError(err) && !errors.Is(err, domain.ErrConfiguration)
}
