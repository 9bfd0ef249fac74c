package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/tx"
)

func TestRetryOnConflict_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), 3, "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return apperror.NewConcurrentModification(apperror.EntityStock, 1)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_GivesUp(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), 2, "test", func(ctx context.Context) error {
		calls++
		return apperror.NewConcurrentModification(apperror.EntityStock, 1)
	})

	assert.True(t, apperror.IsConcurrentModification(err))
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_OtherErrorsAreNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := RetryOnConflict(context.Background(), 5, "test", func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryOnConflict_SingleShotInsideTransaction(t *testing.T) {
	calls := 0
	ctx := tx.MarkActive(context.Background())
	err := RetryOnConflict(ctx, 5, "test", func(ctx context.Context) error {
		calls++
		return apperror.NewConcurrentModification(apperror.EntityStock, 1)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
