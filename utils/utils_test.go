package utils

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 12)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]+$`), code)

	other, err := GenerateCode(6)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	boom := errors.New("upstream down")
	fail := func(ctx context.Context) error { return boom }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), fail), boom)
	}
	assert.Equal(t, BreakerOpen, cb.State())

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("open breaker must not call through")
		return nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Minute)
	boom := errors.New("upstream down")
	fail := func(ctx context.Context) error { return boom }
	ok := func(ctx context.Context) error { return nil }

	require.Error(t, cb.Execute(context.Background(), fail))
	require.Error(t, cb.Execute(context.Background(), fail))
	require.NoError(t, cb.Execute(context.Background(), ok))
	require.Error(t, cb.Execute(context.Background(), fail))
	require.Error(t, cb.Execute(context.Background(), fail))

	assert.Equal(t, BreakerClosed, cb.State(), "a success in between resets the streak")
}

func TestCircuitBreakerProbesAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)
	boom := errors.New("upstream down")

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return boom }))
	require.Equal(t, BreakerOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)
	boom := errors.New("upstream down")
	fail := func(ctx context.Context) error { return boom }

	require.Error(t, cb.Execute(context.Background(), fail))
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, cb.State())

	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, BreakerOpen, cb.State())
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker("test", 0, 0)
	assert.Equal(t, 5, cb.maxFailures)
	assert.Equal(t, 30*time.Second, cb.cooldown)
}
