package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fleetops/fleetctl/internal/errors"
)

const lastRunFile = "last-run.json"

// SaveLastRun writes the machine-readable summary of the most recent run to
// <stateDir>/last-run.json. Interrupted runs are persisted too, so the
// skipped set survives for audit.
func SaveLastRun(stateDir string, summary *Summary) error {
	if stateDir == "" {
		return nil
	}
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrState,
			"Couldn't create state directory "+stateDir,
			"Check bulk.state_dir in the config")
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(stateDir, lastRunFile), data, 0644)
}

// LoadLastRun reads the persisted summary of the most recent run.
// Returns nil, nil if no run has been recorded yet.
func LoadLastRun(stateDir string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, lastRunFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrState,
			"Couldn't read last-run state",
			"Check bulk.state_dir permissions")
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrState,
			"Corrupt last-run state file",
			"Delete "+filepath.Join(stateDir, lastRunFile)+" and re-run")
	}
	return &summary, nil
}
