package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/teilomillet/personatune/utils"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call because
// the backend failed too many times in a row.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker wraps gobreaker so a dead backend fails fast instead of
// stalling every remaining trial of a run on connection timeouts.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreaker trips after maxFailures consecutive failures and probes
// again after timeout. A zero maxFailures disables tripping.
func NewCircuitBreaker(name string, maxFailures uint32, timeout time.Duration, logger utils.Logger) *CircuitBreaker {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxFailures > 0 && counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "backend", name, "from", from.String(), "to", to.String())
		},
	}
	return &CircuitBreaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", NewLLMError(ErrorTypeCircuitOpen, cb.breaker.Name(), ErrCircuitOpen)
		}
		return "", err
	}
	return result.(string), nil
}

// State returns "closed", "open" or "half-open".
func (cb *CircuitBreaker) State() string {
	return cb.breaker.State().String()
}
