package bulk

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fleetops/fleetctl/internal/errors"
)

// SaveState serializes the run's counters and outcome sets to path,
// enabling pause/resume of long runs and after-the-fact audit.
func SaveState(path string, run *Run) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrState,
			"Couldn't create state directory for "+path,
			"Check bulk.state_dir in the config")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadState restores a run persisted by SaveState, possibly in a fresh process.
func LoadState(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrState,
			"Couldn't read bulk state file "+path,
			"Check the path; state files live under bulk.state_dir")
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrState,
			"Corrupt bulk state file "+path,
			"The file isn't valid JSON; it may have been truncated")
	}

	if run.Failed == nil {
		run.Failed = make(map[int]string)
	}
	if run.Skipped == nil {
		run.Skipped = make(map[int]string)
	}

	return &run, nil
}

// Remaining returns the ids in the run's range that have not yet succeeded,
// in ascending order. Used to resume an interrupted run: failed and skipped
// ids get another chance, finished ones don't.
func (r *Run) Remaining() []int {
	done := make(map[int]bool, len(r.Succeeded))
	for _, id := range r.Succeeded {
		done[id] = true
	}

	var remaining []int
	for id := r.Start; id <= r.End; id++ {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}
	return remaining
}
