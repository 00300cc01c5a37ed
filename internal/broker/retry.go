package broker

import (
	"context"
	"time"
)

// retryCall runs fn up to attempts times, each bounded by perTry, sleeping
// briefly between tries. The last error wins. This is the single retry path
// for every live exchange call.
func retryCall(ctx context.Context, attempts int, perTry time.Duration, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tryCtx, cancel := context.WithTimeout(ctx, perTry)
		err := fn(tryCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 250 * time.Millisecond):
			}
		}
	}
	return lastErr
}
