package clients

import (
	"context"
	"time"
)

// sleepBackoff waits for the exponential backoff of the given attempt,
// capped at MAX_BACKOFF, honoring context cancellation.
func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := INITIAL_BACKOFF
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= MAX_BACKOFF {
			backoff = MAX_BACKOFF
			break
		}
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
