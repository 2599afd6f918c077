package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fastRetry(2), func() error {
		calls++
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", fastRetry(5), func() error {
		calls++
		return Permanent(errBoom)
	})
	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "op", fastRetry(5), func() error { return errBoom })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, backoff(1, cfg))
	assert.Equal(t, 2*time.Second, backoff(2, cfg))
	assert.Equal(t, 3*time.Second, backoff(5, cfg))
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("loader", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange:    func(_ string, to State) { transitions = append(transitions, to) },
	})
	now := time.Unix(1000, 0)
	cb.now = func() time.Time { return now }

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	cb := NewCircuitBreaker("loader", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	now := time.Unix(1000, 0)
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(time.Second)
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = WithTimeout(context.Background(), time.Second, "fast", func(context.Context) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)

	assert.NoError(t, WithTimeout(context.Background(), 0, "none", func(context.Context) error { return nil }))
}

func TestCircuitBreaker_CanceledCallsAreNotFailures(t *testing.T) {
	cb := NewCircuitBreaker("loader", CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return context.Canceled }), context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return context.Canceled })
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_CanceledTrialFreesSlot(t *testing.T) {
	cb := NewCircuitBreaker("loader", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second, HalfOpenMaxRequests: 1})
	now := time.Unix(1000, 0)
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBoom })
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Second)
	assert.ErrorIs(t, cb.Execute(func() error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateHalfOpen, cb.State())

	called := false
	require.NoError(t, cb.Execute(func() error { called = true; return nil }))
	assert.True(t, called)
	assert.Equal(t, StateClosed, cb.State())
}
