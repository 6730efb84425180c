package services

import (
	"context"
	"fmt"
	"time"

	"ticketline/internal/status"
)

// withRetry runs attempt up to attempts times, sleeping backoff between
// tries. Only write conflicts are retried; every other failure, and success,
// is returned immediately. Exhausting the bound wraps the last conflict in
// ErrRetryExhausted.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, attempt func() error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err = attempt()
		if err == nil || !status.IsConflict(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", status.ErrRetryExhausted, err)
}
