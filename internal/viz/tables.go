package viz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/trajopt/internal/nlp"
	"github.com/san-kum/trajopt/internal/solver"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444466"))).
		Headers(headers...)
}

// RenderOptions lists solver options with their effective value and
// whether the backend recognizes them.
func RenderOptions(backend string, opts []solver.OptionValue) string {
	t := newTable("option", "value", "source")
	for _, o := range opts {
		source := "default"
		if o.Set {
			source = "set"
		}
		if !o.Recognized {
			source += " (unrecognized)"
		}
		t.Row(o.Name, o.Value, source)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		base := lipgloss.NewStyle().Padding(0, 1)
		switch {
		case row == table.HeaderRow:
			return base.Bold(true).Foreground(lipgloss.Color("#ffffff"))
		case col == 2 && !opts[row].Recognized:
			return base.Foreground(lipgloss.Color("#ffaa00"))
		case col == 1:
			return base.Foreground(lipgloss.Color("#00ccff"))
		}
		return base.Foreground(lipgloss.Color("#888899"))
	})
	return Title.Render("backend: "+backend) + "\n" + t.String()
}

// StatusStyle picks the style for a solver status.
func StatusStyle(s nlp.Status) lipgloss.Style {
	switch {
	case s.Converged():
		return StatusGood
	case s == nlp.IterationLimit || s == nlp.Canceled:
		return StatusWarn
	}
	return StatusBad
}

// RenderSummary shows the outcome of a solve and its metrics.
func RenderSummary(problem string, sol *nlp.Solution, metrics map[string]float64) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("trajopt: "+problem) + "\n\n")

	line := func(name, value string) {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-16s", name)) + " " + value + "\n")
	}
	line("status", StatusStyle(sol.Status).Render(sol.Status.String()))
	line("objective", MetricValue.Render(fmt.Sprintf("%.6g", sol.Objective)))
	line("iterations", MetricValue.Render(fmt.Sprint(sol.Iterations)))
	line("elapsed", MetricValue.Render(sol.Elapsed.String()))
	if sol.Message != "" {
		line("message", Subtle.Render(sol.Message))
	}

	if len(metrics) > 0 {
		names := make([]string, 0, len(metrics))
		for name := range metrics {
			names = append(names, name)
		}
		slices.Sort(names)

		t := newTable("metric", "value")
		for _, name := range names {
			t.Row(name, fmt.Sprintf("%.6g", metrics[name]))
		}
		b.WriteString("\n" + t.String() + "\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
