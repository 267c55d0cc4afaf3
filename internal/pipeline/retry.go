package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/rdhtml/internal/labelstore"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *labelstore.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// retry runs fn up to MaxRetries times while it fails with a retryable error.
func retry(ctx context.Context, log *slog.Logger, op string, backoff func(int) time.Duration, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		log.Warn("retryable label store error", "op", op, "attempt", attempt, "error", err)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
