package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/acl-rts-tracker/internal/domain"
)

func severityColor(sev domain.Severity) *color.Color {
	switch sev {
	case domain.SeverityPass:
		return color.New(color.FgHiGreen, color.Bold)
	case domain.SeverityWarn:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func metColor(met bool) *color.Color {
	if met {
		return color.New(color.FgGreen)
	}
	return color.New(color.FgRed)
}

func phaseBadge(res domain.PhaseResult) string {
	return severityColor(res.Severity).Sprintf("Level %d: %s", res.Level, res.Label)
}

func formatValue(v domain.MetricValue) string {
	f, ok := v.Value()
	if !ok {
		return color.New(color.FgHiBlack).Sprint("unknown")
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatDelta(v domain.MetricValue) string {
	f, ok := v.Value()
	if !ok {
		return color.New(color.FgHiBlack).Sprint("unknown")
	}
	s := strconv.FormatFloat(f, 'f', 1, 64)
	if f >= 0 {
		return color.New(color.FgGreen).Sprint("+" + s)
	}
	return color.New(color.FgRed).Sprint(s)
}

// writePhase prints a classification with the gate breakdown.
func writePhase(w io.Writer, res domain.PhaseResult) {
	fmt.Fprintf(w, "Phase: %s\n", phaseBadge(res))

	for _, gate := range res.Gates {
		mark := "✗"
		if gate.Passed {
			mark = "✓"
		}
		mark = metColor(gate.Passed).Sprint(mark)
		fmt.Fprintf(w, "  %s L%d %s\n", mark, gate.Level, gate.Label)
		for _, c := range gate.Criteria {
			fmt.Fprintf(w, "      %-12s %8s (min %g)\n", c.Metric, metColor(c.Met).Sprint(formatValue(c.Actual)), c.Min)
		}
	}

	if len(res.Blocking) > 0 {
		parts := make([]string, 0, len(res.Blocking))
		for _, c := range res.Blocking {
			parts = append(parts, fmt.Sprintf("%s %s < %g", c.Metric, formatValue(c.Actual), c.Min))
		}
		fmt.Fprintf(w, "Blocking: %s\n", strings.Join(parts, ", "))
	}

	if len(res.GoalDeltas) > 0 {
		fmt.Fprintf(w, "Goal deltas (target %g):", domain.RTSTarget)
		for _, name := range []string{domain.MetricACLRSI, domain.MetricQuadLSI} {
			if d, ok := res.GoalDeltas[name]; ok {
				fmt.Fprintf(w, " %s %s", name, formatDelta(d))
			}
		}
		fmt.Fprintln(w)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
