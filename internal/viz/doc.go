// Package viz renders solver output in the terminal.
//
//   - [PlotTrajectory]: asciigraph charts of states and controls over time
//   - [RenderOptions], [RenderSummary]: lipgloss tables
//   - [Progress]: a Bubble Tea view of a running solve, fed by an
//     [nlp.Observer]
//
// # Key Bindings
//
// While [Watch] is running:
//
//	q, Ctrl+C - cancel the solve
package viz
