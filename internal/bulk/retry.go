package bulk

import (
	"context"
	"time"
)

// WithRetry wraps fn so a failing unit is re-invoked up to retries extra
// times with a fixed delay, returning success on the first success. A unit
// failing k times then succeeding counts success exactly once, with fn
// invoked k+1 times.
//
// Skips are not retried: an ineligible id stays ineligible.
func WithRetry(fn UnitFunc, retries int, delay time.Duration) UnitFunc {
	if retries <= 0 {
		return fn
	}

	return func(ctx context.Context, id int) error {
		var err error
		for attempt := 0; attempt <= retries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			err = fn(ctx, id)
			if err == nil {
				return nil
			}
			if _, skipped := SkipReason(err); skipped {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		return err
	}
}
