package domain

import (
	"context"
	"time"

	"serviceshop/internal/core/apperror"
	"serviceshop/internal/core/tx"
	"serviceshop/pkg/logger"
)

// RetryOnConflict runs fn and re-runs it while it fails with a concurrent modification,
// at most retries extra times. Inside an already open transaction fn runs exactly once:
// the outer transaction is aborted and only its owner can restart it.
func RetryOnConflict(ctx context.Context, retries int, op string, fn func(ctx context.Context) error) error {
	if tx.IsActive(ctx) {
		return fn(ctx)
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !apperror.IsConcurrentModification(err) || attempt >= retries {
			return err
		}

		logger.Warn(ctx, "concurrent modification, retrying",
			"op", op,
			"attempt", attempt+1,
		)

		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff(attempt)):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := 5 * time.Millisecond << attempt
	if d > 200*time.Millisecond {
		d = 200 * time.Millisecond
	}
	return d
}
