package viz

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/trajopt/internal/nlp"
)

const historyLen = 60

// IterationMsg carries one backend iteration into the view.
type IterationMsg nlp.Iteration

// DoneMsg ends the view with the solve outcome.
type DoneMsg struct {
	Solution *nlp.Solution
	Err      error
}

// Progress is a Bubble Tea model of a running solve.
type Progress struct {
	problem       string
	maxIterations int
	cancel        context.CancelFunc

	last          nlp.Iteration
	seen          int
	objective     []float64
	infeasibility []float64

	done     bool
	solution *nlp.Solution
	err      error
}

func NewProgress(problem string, maxIterations int, cancel context.CancelFunc) Progress {
	return Progress{problem: problem, maxIterations: maxIterations, cancel: cancel}
}

func (m Progress) Init() tea.Cmd { return nil }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
		}
	case IterationMsg:
		m.last = nlp.Iteration(msg)
		m.seen++
		m.objective = appendBounded(m.objective, msg.Objective)
		m.infeasibility = appendBounded(m.infeasibility, logScale(msg.Infeasibility))
	case DoneMsg:
		m.done = true
		m.solution = msg.Solution
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func appendBounded(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyLen {
		s = s[len(s)-historyLen:]
	}
	return s
}

func logScale(v float64) float64 {
	return math.Log10(math.Max(v, 1e-16))
}

func (m Progress) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("solving "+m.problem) + "\n\n")

	frac := 0.0
	if m.maxIterations > 0 {
		frac = float64(m.seen) / float64(m.maxIterations)
	}
	fmt.Fprintf(&b, "%s %s %d/%d\n", MetricLabel.Render("iterations   "), ProgressBar(frac, 30), m.seen, m.maxIterations)
	fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("objective    "), MetricValue.Render(fmt.Sprintf("%.6g", m.last.Objective)))
	fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("infeasibility"), MetricValue.Render(fmt.Sprintf("%.3e", m.last.Infeasibility)))
	fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("optimality   "), MetricValue.Render(fmt.Sprintf("%.3e", m.last.Optimality)))
	fmt.Fprintf(&b, "%s %s\n", MetricLabel.Render("log10 infeas "), Sparkline(m.infeasibility, historyLen))

	if m.done {
		switch {
		case m.err != nil:
			b.WriteString("\n" + StatusBad.Render("error: "+m.err.Error()) + "\n")
		case m.solution != nil:
			b.WriteString("\n" + StatusStyle(m.solution.Status).Render(m.solution.Status.String()) + "\n")
		}
	} else {
		b.WriteString("\n" + KeyHint.Render("q: cancel") + "\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// Watch runs solve while showing its progress. solve receives the
// observer to install and a context that is canceled when the user quits.
func Watch(ctx context.Context, problem string, maxIterations int,
	solve func(ctx context.Context, observe nlp.Observer) (*nlp.Solution, error),
) (*nlp.Solution, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgress(problem, maxIterations, cancel))
	go func() {
		sol, err := solve(ctx, func(it nlp.Iteration) { p.Send(IterationMsg(it)) })
		p.Send(DoneMsg{Solution: sol, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(Progress)
	return m.solution, m.err
}
