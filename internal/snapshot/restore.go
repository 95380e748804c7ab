package snapshot

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/ui"
)

// RestoreOptions control confirmation behavior during a restore.
type RestoreOptions struct {
	// Force skips the confirmation prompt.
	Force bool

	// Confirm is consulted before applying when Force is false. A nil
	// Confirm with Force false aborts the restore.
	Confirm func(prompt string) (bool, error)
}

// RestoreResult reports what a restore actually did.
type RestoreResult struct {
	Applied  int
	Warnings []string
	Aborted  bool
}

// Restore replays the record's key/value pairs against the provider, one
// SetConfig call per key. It shows the diff against current state first and
// asks for confirmation unless forced. Per-key failures are warnings; the
// remaining keys are still applied.
func Restore(ctx context.Context, p Provider, rec *Record, opts RestoreOptions, out io.Writer, log logger.Logger) (*RestoreResult, error) {
	if log == nil {
		log = logger.Noop()
	}

	changes, err := Compare(ctx, p, rec)
	if err != nil {
		return nil, err
	}
	RenderDiff(out, rec, changes)

	res := &RestoreResult{}
	if len(changes) == 0 {
		return res, nil
	}

	if !opts.Force {
		if opts.Confirm == nil {
			res.Aborted = true
			return res, nil
		}
		ok, err := opts.Confirm(fmt.Sprintf("Restore snapshot %q onto %s %d?", rec.Name, rec.Type, rec.ID))
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Aborted = true
			fmt.Fprintln(out, ui.StyleMuted.Render("Restore cancelled"))
			return res, nil
		}
	}

	keys := make([]string, 0, len(rec.Config))
	for k := range rec.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.SetConfig(ctx, rec.Type, rec.ID, key, rec.Config[key]); err != nil {
			warning := fmt.Sprintf("couldn't apply %s: %v", key, err)
			res.Warnings = append(res.Warnings, warning)
			log.Warn("restore %s %d: %s", rec.Type, rec.ID, warning)
			fmt.Fprintf(out, "  %s %s\n", ui.StyleWarning.Render(ui.SymbolWarning), warning)
			continue
		}
		res.Applied++
	}

	fmt.Fprintf(out, "%s Applied %d key(s), %d warning(s)\n",
		ui.StyleSuccess.Render(ui.SymbolSuccess), res.Applied, len(res.Warnings))
	return res, nil
}
