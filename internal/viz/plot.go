package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/trajopt/internal/transcription"
)

const (
	plotHeight = 10
	plotWidth  = 80
	maxPlots   = 6
)

// Labels names trajectory columns. Missing names fall back to state0,
// control0 and so on.
type Labels struct {
	States   []string
	Controls []string
}

var problemLabels = map[string]Labels{
	"slider":       {States: []string{"position"}, Controls: []string{"velocity"}},
	"linear":       {States: []string{"x"}, Controls: []string{"u"}},
	"sliding-mass": {States: []string{"position", "velocity"}, Controls: []string{"force"}},
	"pendulum":     {States: []string{"theta (angle)", "omega (angular velocity)"}, Controls: []string{"torque"}},
	"cartpole": {
		States:   []string{"cart position", "cart velocity", "pole angle", "pole angular velocity"},
		Controls: []string{"force"},
	},
}

// LabelsFor returns the column names of a built-in problem.
func LabelsFor(problem string) Labels {
	return problemLabels[problem]
}

func label(names []string, i int, prefix string) string {
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%s%d", prefix, i)
}

// PlotTrajectory draws one chart per state and control, up to six.
func PlotTrajectory(tr *transcription.Trajectory, labels Labels) string {
	if tr == nil || tr.Len() == 0 {
		return Subtle.Render("no data to plot")
	}
	var charts []string
	column := func(pick func(i int) float64) []float64 {
		data := make([]float64, tr.Len())
		for i := range data {
			data[i] = pick(i)
		}
		return data
	}

	for s := 0; s < len(tr.States[0]) && len(charts) < maxPlots; s++ {
		data := column(func(i int) float64 { return tr.States[i][s] })
		charts = append(charts, asciigraph.Plot(data,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(label(labels.States, s, "state")),
			asciigraph.SeriesColors(asciigraph.Cyan),
		))
	}
	for c := 0; c < len(tr.Controls[0]) && len(charts) < maxPlots; c++ {
		data := column(func(i int) float64 { return tr.Controls[i][c] })
		charts = append(charts, asciigraph.Plot(data,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(label(labels.Controls, c, "control")),
			asciigraph.SeriesColors(asciigraph.Orange),
		))
	}
	return strings.Join(charts, "\n\n")
}

// PlotHistory draws the objective and infeasibility per iteration.
func PlotHistory(objective, infeasibility []float64) string {
	if len(objective) == 0 {
		return Subtle.Render("no iterations")
	}
	return asciigraph.PlotMany([][]float64{objective, infeasibility},
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Red),
		asciigraph.SeriesLegends("objective", "infeasibility"),
	)
}
