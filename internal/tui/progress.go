// Package tui shows optimizer progress in the terminal while a compensator
// search runs.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/leadlag/internal/compensator"
	"github.com/san-kum/leadlag/internal/design"
	"github.com/san-kum/leadlag/internal/optim"
)

const (
	barWidth     = 40
	historyWidth = 48
)

// OptimizeFunc runs a search, reporting each generation to obs.
type OptimizeFunc func(ctx context.Context, obs optim.Observer) (*design.Result, error)

type progressMsg optim.Progress

type doneMsg struct {
	res *design.Result
	err error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	title   string
	total   int
	cancel  context.CancelFunc
	started time.Time

	frame   int
	last    optim.Progress
	history []float64

	done bool
	res  *design.Result
	err  error
}

func newModel(title string, total int, cancel context.CancelFunc) model {
	return model{
		title:   title,
		total:   max(total, 1),
		cancel:  cancel,
		started: time.Now(),
		history: make([]float64, 0, historyWidth),
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			// the search returns its best-so-far once cancelled
			m.cancel()
		}
		return m, nil
	case progressMsg:
		m.last = optim.Progress(msg)
		m.history = append(m.history, msg.BestCost)
		if len(m.history) > historyWidth {
			m.history = m.history[1:]
		}
		return m, nil
	case doneMsg:
		m.done = true
		m.res, m.err = msg.res, msg.err
		return m, tea.Quit
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	status := cyan.Render(spinner(m.frame))
	if m.done {
		status = green.Render("✓")
	}
	b.WriteString("  " + status + " " + white.Render(m.title) + "  " +
		dim.Render(time.Since(m.started).Round(100*time.Millisecond).String()) + "\n\n")

	pct := float64(m.last.Generation) / float64(m.total)
	b.WriteString("  " + progressBar(pct, barWidth) +
		dim.Render(fmt.Sprintf("  gen %d/%d", m.last.Generation, m.total)) + "\n\n")

	var body strings.Builder
	body.WriteString(row("best cost", fmt.Sprintf("%.6g", m.last.BestCost)))
	body.WriteString(row("spread", fmt.Sprintf("%.3g", m.last.Spread)))
	body.WriteString(row("evaluations", fmt.Sprintf("%d", m.last.Evaluations)))
	if len(m.last.Best) == compensator.Dim {
		c := compensator.FromVector(m.last.Best).Compensator()
		body.WriteString(row("K", fmt.Sprintf("%.4g", c.K)))
		body.WriteString(row("T", fmt.Sprintf("%.4g", c.T)))
		body.WriteString(row("alpha", fmt.Sprintf("%.4g", c.Alpha)) +
			"  " + magenta.Render(string(c.Type)))
	}
	b.WriteString(panel.Render(strings.TrimRight(body.String(), "\n")) + "\n")

	b.WriteString("  " + sparkline(m.history, historyWidth) + "\n")
	b.WriteString("  " + separator(historyWidth) + "\n")
	b.WriteString(dim.Render("  q stop early") + "\n")
	return b.String()
}

func row(label, value string) string {
	return dim.Render(fmt.Sprintf("%-12s", label)) + cyan.Render(value) + "\n"
}

// Run drives optimize under a live progress view. total is the expected
// number of generations. Quitting the view cancels the search.
func Run(ctx context.Context, title string, total int, optimize OptimizeFunc) (*design.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(title, total, cancel))
	go func() {
		res, err := optimize(ctx, func(pr optim.Progress) {
			pr.Best = append([]float64(nil), pr.Best...)
			p.Send(progressMsg(pr))
		})
		p.Send(doneMsg{res: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(model); ok && m.done {
		return m.res, m.err
	}
	return nil, ctx.Err()
}
