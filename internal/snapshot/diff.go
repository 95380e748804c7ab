package snapshot

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/ui"
)

// Change is one configuration key whose value differs between a snapshot
// and the entity's current state. Old or New is empty when the key exists
// on only one side.
type Change struct {
	Key string
	Old string
	New string
}

// DiffConfig compares a saved configuration against a current one key by
// key and returns the changed keys in sorted order.
func DiffConfig(saved, current map[string]string) []Change {
	keys := make(map[string]bool, len(saved)+len(current))
	for k := range saved {
		keys[k] = true
	}
	for k := range current {
		keys[k] = true
	}

	var changes []Change
	for k := range keys {
		oldVal, inSaved := saved[k]
		newVal, inCurrent := current[k]
		if inSaved && inCurrent && oldVal == newVal {
			continue
		}
		changes = append(changes, Change{Key: k, Old: oldVal, New: newVal})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

// Compare re-fetches the entity's current configuration and diffs it
// against the record. An empty result means nothing changed since the
// snapshot was taken.
func Compare(ctx context.Context, p Provider, rec *Record) ([]Change, error) {
	current, err := p.Config(ctx, rec.Type, rec.ID)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSnapshot,
			fmt.Sprintf("Couldn't read current configuration of %s %d", rec.Type, rec.ID), "")
	}
	return DiffConfig(rec.Config, current), nil
}

// RenderDiff writes a human-readable listing of the changes.
func RenderDiff(w io.Writer, rec *Record, changes []Change) {
	if len(changes) == 0 {
		fmt.Fprintf(w, "%s No differences against snapshot %q\n",
			ui.StyleSuccess.Render(ui.SymbolSuccess), rec.Name)
		return
	}

	fmt.Fprintln(w, ui.StyleHeader.Render(
		fmt.Sprintf("%d key(s) differ from snapshot %q (%s %d)",
			len(changes), rec.Name, rec.Type, rec.ID)))
	for _, c := range changes {
		fmt.Fprintf(w, "  %s\n", ui.StyleWarning.Render(c.Key))
		fmt.Fprintf(w, "    snapshot: %s\n", renderValue(c.Old))
		fmt.Fprintf(w, "    current:  %s\n", renderValue(c.New))
	}
}

func renderValue(v string) string {
	if v == "" {
		return ui.StyleMuted.Render("(unset)")
	}
	return v
}
