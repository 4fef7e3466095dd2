package database

import (
	"context"
	"time"

	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
)

// Retry calls connect up to attempts times, doubling the wait after each
// failure. It returns the last error when every attempt failed or ctx ended.
func Retry[T any](ctx context.Context, name string, attempts int, backoff time.Duration, connect func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err = connect(ctx)
		if err == nil {
			return out, nil
		}
		logger.Warnf("attempt %d/%d: failed to connect to %s: %v", attempt, attempts, name, err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return out, err
}
