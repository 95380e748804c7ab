package bulk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	fn := func(ctx context.Context, id int) error {
		switch {
		case id%4 == 0:
			return fmt.Errorf("unit %d failed", id)
		case id%4 == 1:
			return Skip("stopped")
		}
		return nil
	}

	run, err := Execute(context.Background(), 200, 239, fn, Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state", "bulk-run.json")
	require.NoError(t, SaveState(path, run))

	loaded, err := LoadState(path)
	require.NoError(t, err)

	// Counters and outcome sets must survive the round trip byte-for-byte.
	assert.Equal(t, run.Start, loaded.Start)
	assert.Equal(t, run.End, loaded.End)
	assert.Equal(t, run.Succeeded, loaded.Succeeded)
	assert.Equal(t, run.Failed, loaded.Failed)
	assert.Equal(t, run.Skipped, loaded.Skipped)
	assertAccounting(t, loaded)
}

func TestLoadState_Missing(t *testing.T) {
	_, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadState_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, SaveState(path, newRun(1, 1)))

	// Truncate it into invalid JSON.
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := LoadState(path)
	assert.Error(t, err)
}

func TestRemaining(t *testing.T) {
	run := newRun(1, 6)
	run.Succeeded = []int{2, 4}
	run.Failed[3] = "boom"
	run.Skipped[5] = "stopped"

	// Failed, skipped and never-recorded ids all get another chance.
	assert.Equal(t, []int{1, 3, 5, 6}, run.Remaining())
}
