package bulk

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_FailuresThenSuccess(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, id int) error {
		calls++
		if calls <= 2 {
			return fmt.Errorf("transient %d", calls)
		}
		return nil
	}

	wrapped := WithRetry(fn, 3, 0)
	err := wrapped(context.Background(), 42)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls, "fn must be invoked exactly k+1 times for k failures")
}

func TestWithRetry_CountedSuccessExactlyOnce(t *testing.T) {
	// A unit failing twice then succeeding lands in the succeeded set once.
	attempts := map[int]int{}
	fn := func(ctx context.Context, id int) error {
		attempts[id]++
		if attempts[id] <= 2 {
			return fmt.Errorf("flaky")
		}
		return nil
	}

	run, err := Execute(context.Background(), 1, 5, fn, Options{Retries: 2})
	require.NoError(t, err)

	ok, failed, skipped := run.Counts()
	assert.Equal(t, 5, ok)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, skipped)
	for id := 1; id <= 5; id++ {
		assert.Equal(t, 3, attempts[id])
	}
}

func TestWithRetry_ExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, id int) error {
		calls++
		return fmt.Errorf("attempt %d", calls)
	}

	wrapped := WithRetry(fn, 2, 0)
	err := wrapped(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.EqualError(t, err, "attempt 3")
}

func TestWithRetry_SkipIsNotRetried(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, id int) error {
		calls++
		return Skip("wrong state")
	}

	wrapped := WithRetry(fn, 5, 0)
	err := wrapped(context.Background(), 1)

	_, skipped := SkipReason(err)
	assert.True(t, skipped)
	assert.Equal(t, 1, calls, "ineligible units must not be hammered with retries")
}

func TestWithRetry_ZeroRetriesIsIdentity(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, id int) error {
		calls++
		return fmt.Errorf("nope")
	}

	err := WithRetry(fn, 0, 0)(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(ctx context.Context, id int) error {
		calls++
		cancel()
		return fmt.Errorf("failing")
	}

	err := WithRetry(fn, 5, 0)(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "no further attempts after cancellation")
}
