package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestRetry_FirstAttempt(t *testing.T) {
	t.Parallel()
	calls := 0
	v, err := Retry(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		calls++
		return "en", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "en", v)
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversFromTransient(t *testing.T) {
	t.Parallel()
	calls := 0
	var retried []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	v, err := Retry(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Service: "whisper", StatusCode: 503}
		}
		return "hi", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_Exhausts(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return &StatusError{Service: "whisper", StatusCode: 500}
	})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Do(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		return &StatusError{Service: "eleven", StatusCode: 401}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, cfg, func(context.Context) error {
		calls++
		return &StatusError{StatusCode: 429}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_CustomShouldRetry(t *testing.T) {
	t.Parallel()
	calls := 0
	cfg := fastRetry(4)
	cfg.ShouldRetry = func(error) bool { return true }

	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("flaky")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestRetryConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{}.withDefaults()
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, cfg.MaxAttempts)
	assert.Positive(t, cfg.InitialBackoff)
	assert.GreaterOrEqual(t, cfg.Multiplier, 1.0)
	assert.NotNil(t, cfg.ShouldRetry)
}

func TestJitter(t *testing.T) {
	t.Parallel()
	assert.Equal(t, time.Second, jitter(time.Second, 0))
	for range 100 {
		d := jitter(time.Second, 0.5)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestCall_OpenBreakerEndsRetries(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker("whisper_local", BreakerConfig{FailureThreshold: 1})
	calls := 0

	_, err := Call(context.Background(), Policy{Retry: fastRetry(5), Breaker: cb},
		func(context.Context) (int, error) {
			calls++
			return 0, &StatusError{Service: "whisper", StatusCode: 502}
		})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, calls)
}

func TestCall_WithoutBreaker(t *testing.T) {
	t.Parallel()
	v, err := Call(context.Background(), Policy{Retry: fastRetry(1)}, succeed)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestConfig_Conversion(t *testing.T) {
	t.Parallel()
	c := Config{
		MaxAttempts:      4,
		InitialBackoffMs: 100,
		MaxBackoffMs:     900,
		JitterFraction:   0.1,
		FailureThreshold: 7,
		ResetTimeoutSecs: 12,
	}
	r := c.Retry()
	assert.Equal(t, 4, r.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, r.InitialBackoff)
	assert.Equal(t, 900*time.Millisecond, r.MaxBackoff)
	assert.InDelta(t, 0.1, r.JitterFraction, 1e-9)

	b := c.Breaker()
	assert.Equal(t, 7, b.FailureThreshold)
	assert.Equal(t, 12*time.Second, b.ResetTimeout)

	assert.Equal(t, DefaultRetryConfig().MaxAttempts, Config{}.Retry().MaxAttempts)
	assert.Equal(t, DefaultBreakerConfig().FailureThreshold, Config{}.Breaker().FailureThreshold)
}
