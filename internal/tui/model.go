package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docsum/internal/batch"
	"docsum/internal/domain"
	"docsum/internal/progress"
)

const pollInterval = 250 * time.Millisecond

// RunFunc runs a submission in the background. It is nil when the model
// only observes work done elsewhere.
type RunFunc func(ctx context.Context) (batch.Report, error)

type tickMsg time.Time

type batchDoneMsg struct {
	report batch.Report
	err    error
}

// Model is the Bubble Tea model of the progress observer. It never waits on
// background work: events are drained from the source on every tick.
type Model struct {
	ctx    context.Context
	source progress.Source
	store  *progress.StatusStore
	run    RunFunc

	viewport viewport.Model
	spinner  spinner.Model
	cursor   int
	selected string
	ready    bool

	finished bool
	report   batch.Report
	batchErr error
}

// New creates an observer for files. Pass a nil run to only watch.
func New(ctx context.Context, source progress.Source, files []string, run RunFunc) Model {
	store := progress.NewStatusStore()
	store.Track(files...)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		source:   source,
		store:    store,
		run:      run,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), m.spinner.Tick}
	if m.run != nil {
		run, ctx := m.run, m.ctx
		cmds = append(cmds, func() tea.Msg {
			report, err := run(ctx)
			return batchDoneMsg{report: report, err: err}
		})
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := summaryBoxStyle.GetFrameSize()
		reserved := 3 + len(m.store.Snapshot()) + fh
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.viewport.SetContent(m.renderSelected())
		return m, nil
	case tickMsg:
		m.store.Apply(m.source.Drain()...)
		m.viewport.SetContent(m.renderSelected())
		return m, tick()
	case batchDoneMsg:
		// pick up terminal events published just before the batch returned
		m.store.Apply(m.source.Drain()...)
		m.finished = true
		m.report = msg.report
		m.batchErr = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		entries := m.store.Snapshot()
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "down", "j":
			if len(entries) > 0 {
				m.cursor = (m.cursor + 1) % len(entries)
			}
			return m, nil
		case "up", "k":
			if len(entries) > 0 {
				m.cursor = (m.cursor - 1 + len(entries)) % len(entries)
			}
			return m, nil
		case "enter":
			// busy files are not selectable
			if m.cursor < len(entries) && entries[m.cursor].Status.Terminal() {
				m.selected = entries[m.cursor].Filename
				m.viewport.SetContent(m.renderSelected())
				m.viewport.GotoTop()
			}
			return m, nil
		case "esc":
			m.selected = ""
			m.viewport.SetContent(m.renderSelected())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("docsum") + "\n")
	for i, e := range m.store.Snapshot() {
		b.WriteString(m.renderTile(e, i == m.cursor) + "\n")
	}
	b.WriteString(summaryBoxStyle.Render(m.viewport.View()) + "\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m Model) renderTile(e progress.Entry, current bool) string {
	icon := m.spinner.View()
	style := busyStyle
	switch e.Status {
	case domain.StatusCompleted:
		icon, style = "✓", okStyle
	case domain.StatusError, domain.StatusExtractionError, domain.StatusChunkingError:
		icon, style = "✗", errStyle
	case domain.StatusSkipped:
		icon, style = "–", mutedStyle
	case domain.StatusWaiting:
		icon, style = "·", mutedStyle
	}
	cursor := "  "
	if current {
		cursor = "> "
	}
	line := fmt.Sprintf("%s%s %s  %s", cursor, icon, e.Filename, style.Render(string(e.Status)))
	if e.Filename == m.selected {
		return selectedStyle.Render(line)
	}
	return line
}

func (m Model) renderSelected() string {
	if m.selected == "" {
		return "Select a finished file with ↑/↓ and Enter."
	}
	e, ok := m.store.Get(m.selected)
	if !ok || e.Result == nil {
		return "No result for " + m.selected + "."
	}
	if !e.Result.Success {
		return errStyle.Render(fmt.Sprintf("%s: %s", e.Status, e.Result.Error))
	}
	var b strings.Builder
	b.WriteString(e.Result.Summary)
	if len(e.Result.Failures) > 0 {
		b.WriteString("\n" + mutedStyle.Render("Sections not generated:") + "\n")
		for _, f := range e.Result.Failures {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s: %s", f.Key, f.ErrorReason)) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderStatus() string {
	if m.batchErr != nil {
		return errStyle.Render("Error: " + m.batchErr.Error())
	}
	counts := m.store.Counts()
	busy := 0
	for status, n := range counts {
		if status.Busy() {
			busy += n
		}
	}
	if m.finished && m.report.Empty() {
		return mutedStyle.Render("No summaries were generated.")
	}
	line := fmt.Sprintf("%d completed · %d in progress · %d skipped · %d failed",
		counts[domain.StatusCompleted], busy, counts[domain.StatusSkipped],
		counts[domain.StatusError]+counts[domain.StatusExtractionError]+counts[domain.StatusChunkingError])
	if m.finished {
		line += fmt.Sprintf(" · done in %s", m.report.Elapsed.Round(time.Second))
	}
	return statusStyle.Render(line + "   (q to quit)")
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	summaryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	busyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
