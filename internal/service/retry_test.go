package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tome-labs/tome/internal/domain"
)

func TestWithProviderRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := withProviderRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return domain.NewProviderError("transient", errors.New("timeout"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithProviderRetryGivesUp(t *testing.T) {
	attempts := 0
	err := withProviderRetry(context.Background(), func() error {
		attempts++
		return domain.NewProviderError("transient", errors.New("timeout"))
	})
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
	assert.Equal(t, maxProviderAttempts, attempts)
}

func TestWithProviderRetryDoesNotRetryValidation(t *testing.T) {
	attempts := 0
	err := withProviderRetry(context.Background(), func() error {
		attempts++
		return domain.ErrInvalidTopK
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)
	assert.Equal(t, 1, attempts)
}

func TestWithProviderRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		cancel()
	}()
	err := withProviderRetry(ctx, func() error {
		attempts++
		return domain.NewProviderError("transient", errors.New("timeout"))
	})
	require.Error(t, err)
	assert.LessOrEqual(t, attempts, maxProviderAttempts)
}
