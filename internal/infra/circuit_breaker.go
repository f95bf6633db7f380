package infra

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota // Normal operation
	StateOpen                // Failing, reject requests
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker counts consecutive failures of outbound broker calls and
// blocks calls for a fixed window once the threshold is reached.
// Reopening is evaluated lazily on each Allow call; there is no timer.
// Thread-safe for concurrent use.
type CircuitBreaker struct {
	name string
	mu   sync.Mutex

	consecutiveFailures int
	openUntil           time.Time

	// Configuration
	failureThreshold int           // Failures before opening
	resetWindow      time.Duration // How long the circuit stays open
	now              func() time.Time
}

// CircuitBreakerConfig holds configuration for creating a circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int
	ResetWindow      time.Duration

	// Now overrides the wall clock (tests).
	Now func() time.Time
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		ResetWindow:      30 * time.Second,
	}
}

// NewCircuitBreaker creates a new circuit breaker. Non-positive settings
// fall back to the defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = def.ResetWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		resetWindow:      cfg.ResetWindow,
		now:              cfg.Now,
	}
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow checks if a request should be allowed.
// Returns false while the open window has not elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return !cb.now().Before(cb.openUntil)
}

// RecordSuccess clears the failure count, whatever the state.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed operation. Reaching the threshold opens the
// circuit for the reset window and restarts counting from zero.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++
	if cb.consecutiveFailures < cb.failureThreshold {
		return
	}

	cb.openUntil = cb.now().Add(cb.resetWindow)
	cb.consecutiveFailures = 0
	slog.Warn("Circuit breaker OPEN (failures exceeded threshold)",
		slog.String("name", cb.name),
		slog.Int("threshold", cb.failureThreshold),
		slog.Time("open_until", cb.openUntil))
}

// GetState returns the current state (for monitoring).
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.now().Before(cb.openUntil) {
		return StateOpen
	}
	return StateClosed
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFailures
}

// OpenUntil returns the end of the current (or last) open window.
func (cb *CircuitBreaker) OpenUntil() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.openUntil
}

// Reset forces the circuit breaker to closed state (for testing/admin).
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	cb.openUntil = time.Time{}
	slog.Info("Circuit breaker RESET", slog.String("name", cb.name))
}
