package helpers

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to attempts times, sleeping base*2^n between tries.
// Errors are not classified; every failure is retried until the attempt
// budget is spent. Returns the last error wrapped with the attempt count.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := base << (i - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if last = fn(); last == nil {
			return nil
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, last)
}
