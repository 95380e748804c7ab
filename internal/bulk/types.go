// Package bulk drives an arbitrary unit-of-work function across an id range,
// with retry, filtering, bounded parallelism, and resumable persisted state.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UnitFunc is the caller-supplied unit of work, invoked once per id.
// Return nil for success, a Skip error for ineligible ids, anything else
// for failure.
type UnitFunc func(ctx context.Context, id int) error

// Predicate selects ids without mutating run state.
type Predicate func(ctx context.Context, id int) (bool, error)

// skipError marks an id as ineligible rather than failed.
type skipError struct {
	reason string
}

func (e *skipError) Error() string {
	if e.reason == "" {
		return "skipped"
	}
	return "skipped: " + e.reason
}

// Skip returns an error that classifies the unit as skipped, e.g. when the
// entity is in the wrong lifecycle state for the operation.
func Skip(reason string) error {
	return &skipError{reason: reason}
}

// SkipReason extracts the skip reason if err marks a skipped unit.
func SkipReason(err error) (string, bool) {
	var se *skipError
	if errors.As(err, &se) {
		return se.reason, true
	}
	return "", false
}

// Options configure a bulk run.
type Options struct {
	// MaxRange caps the id span. 0 uses DefaultMaxRange.
	MaxRange int

	// ForceRange raises the cap to the full requested span.
	ForceRange bool

	// Parallel is the worker count for the bounded-parallel variant.
	// Values <= 1 run sequentially.
	Parallel int

	// Retries re-invokes a failing unit up to this many extra times.
	Retries int

	// RetryDelay is the fixed delay between retry attempts.
	RetryDelay time.Duration
}

// DefaultMaxRange guards against accidental fleet-wide typos.
const DefaultMaxRange = 100

// Run is the accounting record of one bulk operation.
// Every id in [Start, End] lands in exactly one outcome set.
type Run struct {
	Start     int            `json:"start"`
	End       int            `json:"end"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Succeeded []int          `json:"succeeded"`
	Failed    map[int]string `json:"failed"`
	Skipped   map[int]string `json:"skipped"`
}

// newRun creates an empty accounting record for [start, end].
func newRun(start, end int) *Run {
	return &Run{
		Start:     start,
		End:       end,
		StartedAt: time.Now(),
		Failed:    make(map[int]string),
		Skipped:   make(map[int]string),
	}
}

// Total returns the range size.
func (r *Run) Total() int {
	return r.End - r.Start + 1
}

// Counts returns (succeeded, failed, skipped).
func (r *Run) Counts() (int, int, int) {
	return len(r.Succeeded), len(r.Failed), len(r.Skipped)
}

// Complete reports whether every id has been classified.
func (r *Run) Complete() bool {
	return len(r.Succeeded)+len(r.Failed)+len(r.Skipped) == r.Total()
}

// Summary returns a one-line human-readable digest.
func (r *Run) Summary() string {
	ok, failed, skipped := r.Counts()
	return fmt.Sprintf("%d succeeded, %d failed, %d skipped of %d ids (%s)",
		ok, failed, skipped, r.Total(), r.Duration.Round(time.Millisecond))
}
