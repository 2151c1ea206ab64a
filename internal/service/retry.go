package service

import (
	"context"
	"time"

	"github.com/tome-labs/tome/internal/domain"
)

const (
	maxProviderAttempts = 3
	retryBaseDelay      = 500 * time.Millisecond
)

// withProviderRetry runs fn, retrying on provider errors with exponential
// backoff. Validation and configuration failures are not retried since
// repeating them cannot succeed.
func withProviderRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxProviderAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		if !domain.IsProviderError(err) {
			return err
		}
	}
	return err
}
