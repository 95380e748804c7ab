package bulk

import (
	"context"
	"sort"
)

// Filter reuses the range-iteration machinery purely to select the ids for
// which pred holds. No run state is created or mutated.
func Filter(ctx context.Context, start, end int, pred Predicate, opts Options) ([]int, error) {
	if err := validateRange(start, end, opts); err != nil {
		return nil, err
	}

	var matched []int
	for id := start; id <= end; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := pred(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, id)
		}
	}

	sort.Ints(matched)
	return matched, nil
}
