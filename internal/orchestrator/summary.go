package orchestrator

import (
	"fmt"
	"io"
	"time"

	"github.com/fleetops/fleetctl/internal/ui"
)

// RenderSummary prints a human-readable run summary.
func RenderSummary(w io.Writer, s *Summary) {
	if s == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.StyleHeader.Render("Run Summary"))
	fmt.Fprintln(w)

	for _, res := range s.Results {
		switch res.Outcome {
		case OutcomeSuccess:
			fmt.Fprintf(w, "  %s %s\n", ui.StyleSuccess.Render(ui.SymbolSuccess), res.Node)
		case OutcomeFailed:
			fmt.Fprintf(w, "  %s %s %s\n",
				ui.StyleError.Render(ui.SymbolFail),
				res.Node,
				ui.StyleMuted.Render(fmt.Sprintf("(exit %d)", res.ExitCode)))
		case OutcomeSkipped:
			fmt.Fprintf(w, "  %s %s %s\n",
				ui.StyleMuted.Render(ui.SymbolSkipped),
				res.Node,
				ui.StyleMuted.Render("skipped"))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %d attempted, %s, %s, %d skipped %s\n",
		ui.StyleMuted.Render(ui.SymbolComplete),
		s.Attempted,
		ui.StyleSuccess.Render(fmt.Sprintf("%d succeeded", s.Succeeded)),
		renderFailed(s.Failed),
		s.Skipped,
		ui.StyleMuted.Render(fmt.Sprintf("(%s)", formatDuration(s.Duration))))
}

func renderFailed(n int) string {
	text := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return ui.StyleError.Render(text)
	}
	return ui.StyleMuted.Render(text)
}

// formatDuration renders a duration with sensible precision.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
