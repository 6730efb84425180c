package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketline/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryReturnsFirstSuccess(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesOnlyConflicts(t *testing.T) {
	boom := errors.New("disk on fire")
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-conflict failures are terminal")
}

func TestWithRetryRecoversWithinBound(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return status.ErrWriteConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsTheBound(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return status.ErrWriteConflict
	})
	require.ErrorIs(t, err, status.ErrRetryExhausted)
	assert.Equal(t, 3, calls)
}

func TestWithRetryTreatsBusyDatabaseAsConflict(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		if calls == 1 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryHonorsContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 5, time.Minute, func() error {
		calls++
		cancel()
		return status.ErrWriteConflict
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "the backoff sleep must not outlive the context")
}

func TestWithRetryZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 0, time.Millisecond, func() error {
		calls++
		return status.ErrWriteConflict
	})
	require.ErrorIs(t, err, status.ErrRetryExhausted)
	assert.Equal(t, 1, calls)
}
