package bulk

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleetops/fleetctl/internal/errors"
)

// Execute applies fn to every id in [start, end] and classifies each id into
// exactly one outcome set. Cancellation is cooperative: the context is polled
// before each unit, and ids never attempted are recorded as skipped so the
// accounting always covers the whole range.
func Execute(ctx context.Context, start, end int, fn UnitFunc, opts Options) (*Run, error) {
	if err := validateRange(start, end, opts); err != nil {
		return nil, err
	}

	if opts.Retries > 0 {
		fn = WithRetry(fn, opts.Retries, opts.RetryDelay)
	}

	run := newRun(start, end)

	if opts.Parallel > 1 {
		executeParallel(ctx, run, fn, opts.Parallel)
	} else {
		executeSequential(ctx, run, fn)
	}

	run.Duration = time.Since(run.StartedAt)
	sort.Ints(run.Succeeded)
	return run, nil
}

// validateRange rejects invalid or oversized spans before any unit runs.
// Oversized-range failures are a distinct pre-flight error class.
func validateRange(start, end int, opts Options) error {
	if start < 0 || end < start {
		return errors.New(errors.ErrValidate,
			fmt.Sprintf("Invalid id range [%d, %d]", start, end),
			"The range must satisfy 0 <= start <= end")
	}

	maxRange := opts.MaxRange
	if maxRange <= 0 {
		maxRange = DefaultMaxRange
	}
	span := end - start + 1
	if span > maxRange && !opts.ForceRange {
		return errors.New(errors.ErrValidate,
			fmt.Sprintf("Range [%d, %d] covers %d ids, more than the %d-id cap", start, end, span, maxRange),
			"Pass --force-range if the span is intentional")
	}

	return nil
}

// executeSequential is the default single-flight mode.
func executeSequential(ctx context.Context, run *Run, fn UnitFunc) {
	for id := run.Start; id <= run.End; id++ {
		if ctx.Err() != nil {
			run.Skipped[id] = "cancelled before start"
			continue
		}
		classify(run, id, fn(ctx, id))
	}
}

// executeParallel runs up to workers units concurrently. Workers only write
// to their own result channel sends; a single aggregator owns the run's
// counters and outcome sets, so classification stays exactly-once without
// locking the maps.
func executeParallel(ctx context.Context, run *Run, fn UnitFunc, workers int) {
	type outcome struct {
		id  int
		err error
	}

	total := run.Total()
	if workers > total {
		workers = total
	}

	ids := make(chan int, total)
	for id := run.Start; id <= run.End; id++ {
		ids <- id
	}
	close(ids)

	results := make(chan outcome, total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				if ctx.Err() != nil {
					// Still exactly one outcome per id.
					results <- outcome{id, Skip("cancelled before start")}
					continue
				}
				results <- outcome{id, fn(ctx, id)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single aggregator: the only writer to the shared sets.
	for res := range results {
		classify(run, res.id, res.err)
	}
}

// classify records one unit outcome. Units aborted by cancellation count as
// skipped, not failed: cancellation is not an error. A deadline expiring
// inside a unit is different: the unit was attempted and did not finish, so
// it lands in the failed set.
func classify(run *Run, id int, err error) {
	switch {
	case err == nil:
		run.Succeeded = append(run.Succeeded, id)
	case isCancelled(err):
		run.Skipped[id] = "cancelled"
	default:
		if reason, ok := SkipReason(err); ok {
			if reason == "" {
				reason = "ineligible"
			}
			run.Skipped[id] = reason
		} else {
			run.Failed[id] = err.Error()
		}
	}
}

func isCancelled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}
