package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers missing credentials and bad registry entries.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedBroker is returned for names absent from the registry.
	ErrUnsupportedBroker = errors.New("unsupported broker")
	// ErrCircuitOpen means the breaker is tripped; back off and retry later.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrMissingIdempotencyKey is returned for orders without a request id.
	ErrMissingIdempotencyKey = errors.New("missing idempotency key")
	// ErrInvalidOrderParameters is returned for malformed order requests.
	ErrInvalidOrderParameters = errors.New("invalid order parameters")
	// ErrBrokerRejected means the venue answered with a non-success status.
	ErrBrokerRejected = errors.New("broker rejected request")
	// ErrBroker is matched by every BrokerError.
	ErrBroker = errors.New("broker error")
	// ErrBrokerTimeout means the outbound call exceeded its deadline.
	ErrBrokerTimeout = errors.New("broker call timed out")
)

// BrokerError wraps an adapter failure with the broker and operation.
type BrokerError struct {
	Broker BrokerName
	Op     string
	Err    error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker %s: %s: %v", e.Broker, e.Op, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrBroker) true for any BrokerError.
func (e *BrokerError) Is(target error) bool { return target == ErrBroker }

// IsClientError reports failures caused by the request itself rather than
// by the venue. These do not count against the circuit breaker.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidOrderParameters) ||
		errors.Is(err, ErrMissingIdempotencyKey) ||
		errors.Is(err, ErrUnsupportedBroker)
}
