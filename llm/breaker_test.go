package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/personatune/utils"
)

func TestCircuitBreakerTrips(t *testing.T) {
	logger := utils.NewMockLogger()
	cb := NewCircuitBreaker("judge", 3, time.Minute, logger)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), func() (string, error) { return "", boom })
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, "open", cb.State())
	assert.True(t, logger.HasMessage("WARN", "Circuit breaker state changed"))

	called := false
	_, err := cb.Execute(context.Background(), func() (string, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := NewCircuitBreaker("student", 0, time.Minute, nil)
	for i := 0; i < 10; i++ {
		_, _ = cb.Execute(context.Background(), func() (string, error) { return "", errors.New("x") })
	}
	assert.Equal(t, "closed", cb.State())

	got, err := cb.Execute(context.Background(), func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker("proposer", 1, time.Minute, nil)
	_, err := cb.Execute(context.Background(), func() (string, error) { return "", context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", cb.State())
}
