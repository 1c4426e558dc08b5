package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/neurosim/internal/sensitivity"
)

const (
	barWidth = 40
	topRows  = 12
)

// ResultMsg carries one finished parameter evaluation into the view.
type ResultMsg sensitivity.Result

// DoneMsg ends the sweep view.
type DoneMsg struct {
	Report *sensitivity.Report
	Err    error
}

// SweepModel is a live progress view for a running sensitivity sweep:
// a progress bar plus the current top-scoring parameters.
type SweepModel struct {
	Scenario  string
	Biomarker string
	Total     int

	done    int
	failed  int
	scores  []sensitivity.Result
	report  *sensitivity.Report
	err     error
	aborted bool
}

func NewSweep(scenario, biomarker string, total int) SweepModel {
	return SweepModel{Scenario: scenario, Biomarker: biomarker, Total: total}
}

// Report returns the finished report, if the sweep completed.
func (m SweepModel) Report() (*sensitivity.Report, error) {
	if m.aborted {
		return nil, fmt.Errorf("sweep aborted")
	}
	return m.report, m.err
}

func (m SweepModel) Init() tea.Cmd { return nil }

func (m SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
	case ResultMsg:
		m.done++
		if msg.Err != nil {
			m.failed++
		} else {
			m.scores = append(m.scores, sensitivity.Result(msg))
			sort.SliceStable(m.scores, func(i, j int) bool { return m.scores[i].Score > m.scores[j].Score })
			if len(m.scores) > topRows {
				m.scores = m.scores[:topRows]
			}
		}
		return m, nil
	case DoneMsg:
		m.report = msg.Report
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m SweepModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("sensitivity sweep: %s / %s", m.Scenario, m.Biomarker)))
	b.WriteString("\n")

	filled := 0
	if m.Total > 0 {
		filled = m.done * barWidth / m.Total
	}
	bar := BarDoneStyle.Render(strings.Repeat("█", filled)) +
		BarRestStyle.Render(strings.Repeat("░", barWidth-filled))
	b.WriteString(fmt.Sprintf("%s %s", bar, ValueStyle.Render(fmt.Sprintf("%d/%d", m.done, m.Total))))
	if m.failed > 0 {
		b.WriteString(FailStyle.Render(fmt.Sprintf("  (%d skipped)", m.failed)))
	}
	b.WriteString("\n\n")

	var rows strings.Builder
	for _, r := range m.scores {
		rows.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render(r.Parameter),
			ScoreStyle.Render(fmt.Sprintf("%8.3f", r.Score))))
	}
	if rows.Len() > 0 {
		b.WriteString(PanelStyle.Render(rows.String()))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("q: abort"))
	b.WriteString("\n")
	return b.String()
}
