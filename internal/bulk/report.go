package bulk

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/ui"
)

// Format selects the report rendering.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatCSV, FormatTable:
		return Format(s), nil
	}
	return "", errors.New(errors.ErrValidate,
		fmt.Sprintf("Unknown report format %q", s),
		"Use text, json, csv, or table")
}

// row is one id's line in a detailed report.
type row struct {
	ID      int    `json:"id"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// rows flattens the run's outcome sets into id order.
func (r *Run) rows() []row {
	out := make([]row, 0, r.Total())
	for _, id := range r.Succeeded {
		out = append(out, row{ID: id, Outcome: "success"})
	}
	for id, msg := range r.Failed {
		out = append(out, row{ID: id, Outcome: "failed", Message: msg})
	}
	for id, msg := range r.Skipped {
		out = append(out, row{ID: id, Outcome: "skipped", Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Report writes a detailed report of the run in the requested format.
// The text form highlights failed and skipped ids with reasons; json and csv
// are for automation consumption.
func Report(w io.Writer, run *Run, format Format) error {
	switch format {
	case FormatJSON:
		return reportJSON(w, run)
	case FormatCSV:
		return reportCSV(w, run)
	case FormatTable:
		return reportTable(w, run)
	default:
		return reportText(w, run)
	}
}

func reportText(w io.Writer, run *Run) error {
	fmt.Fprintln(w, ui.StyleHeader.Render(fmt.Sprintf("Bulk run [%d, %d]", run.Start, run.End)))
	fmt.Fprintf(w, "  %s\n", run.Summary())

	if len(run.Failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.StyleError.Render("Failed:"))
		for _, id := range sortedKeys(run.Failed) {
			fmt.Fprintf(w, "  %s %d: %s\n", ui.StyleError.Render(ui.SymbolFail), id, run.Failed[id])
		}
	}

	if len(run.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.StyleWarning.Render("Skipped:"))
		for _, id := range sortedKeys(run.Skipped) {
			fmt.Fprintf(w, "  %s %d: %s\n", ui.StyleMuted.Render(ui.SymbolSkipped), id, run.Skipped[id])
		}
	}

	return nil
}

func reportJSON(w io.Writer, run *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*Run
		Results []row `json:"results"`
	}{run, run.rows()})
}

func reportCSV(w io.Writer, run *Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "outcome", "message"}); err != nil {
		return err
	}
	for _, r := range run.rows() {
		if err := cw.Write([]string{strconv.Itoa(r.ID), r.Outcome, r.Message}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func reportTable(w io.Writer, run *Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOUTCOME\tMESSAGE")
	for _, r := range run.rows() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Outcome, r.Message)
	}
	return tw.Flush()
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
