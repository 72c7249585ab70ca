package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sbs27/salespipe/sched"
)

// refreshEvery is the live status poll interval.
const refreshEvery = 2 * time.Second

// StatusFeed is the data payload for the status view. Fetch, when set,
// enables live refresh: the view re-polls on a timer and on 'r'.
type StatusFeed struct {
	Initial *sched.Status
	Fetch   func() (*sched.Status, error)
}

type statusTickMsg time.Time

type statusFetchedMsg struct {
	status *sched.Status
	err    error
}

// StatusModel is a Bubble Tea model for the scheduler status view.
type StatusModel struct {
	feed     *StatusFeed
	status   *sched.Status
	fetchErr error
	width    int
	height   int
	quitting bool
}

// NewStatusModel creates a new status model. Accepts either a
// *StatusFeed (live) or a bare *sched.Status (static).
func NewStatusModel(data any) StatusModel {
	m := StatusModel{}
	switch d := data.(type) {
	case *StatusFeed:
		m.feed = d
		m.status = d.Initial
	case *sched.Status:
		m.status = d
	}
	return m
}

func (m StatusModel) live() bool {
	return m.feed != nil && m.feed.Fetch != nil
}

// Init implements tea.Model.
func (m StatusModel) Init() tea.Cmd {
	if m.live() {
		return statusTick()
	}
	return nil
}

// Update implements tea.Model.
func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			if m.live() {
				return m, m.fetchStatus()
			}
		}

	case statusTickMsg:
		return m, tea.Batch(m.fetchStatus(), statusTick())

	case statusFetchedMsg:
		m.fetchErr = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m StatusModel) View() string {
	if m.quitting {
		return ""
	}
	if m.status == nil {
		return "Invalid data type for status"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Scheduler Status"))
	b.WriteString("\n\n")

	state := "idle"
	if m.status.IsRunning {
		state = "running"
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("State:"),
		OutcomeStyle(state).Render(state)))

	interval := time.Duration(m.status.IntervalSeconds * float64(time.Second))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Interval:"),
		ValueStyle.Render(interval.String())))

	if m.status.LastRunAt != nil {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Last Run:"),
			ValueStyle.Render(m.status.LastRunAt.Format("2006-01-02 15:04:05"))))
	}
	if m.status.LastOutcome != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Last Outcome:"),
			OutcomeStyle(m.status.LastOutcome).Render(m.status.LastOutcome)))
	}
	if m.status.NextRunAt != nil {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Next Run:"),
			ValueStyle.Render(m.status.NextRunAt.Format("2006-01-02 15:04:05"))))
	}

	if report := m.status.LastReport; report != nil {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Last Run"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Run ID:"),
			ValueStyle.Render(report.RunID)))
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Source:"),
			ValueStyle.Render(report.Source)))
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Extracted:"),
			ValueStyle.Render(fmt.Sprintf("%d", report.RecordsExtracted))))
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Inserted:"),
			ValueStyle.Render(fmt.Sprintf("%d", report.RecordsInserted))))
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Duration:"),
			ValueStyle.Render((time.Duration(report.DurationMs) * time.Millisecond).String())))
		if report.RecordsExtracted > 0 {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render("Revenue:"),
				ValueStyle.Render(report.Summary.TotalRevenue.String())))
		}
		if report.FallbackPath != "" {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render("Fallback:"),
				WarningStyle.Render(report.FallbackPath)))
		}
	}

	content := BoxStyle.Render(b.String())

	if m.fetchErr != nil {
		content += "\n" + ErrorStyle.Render(fmt.Sprintf("refresh failed: %v", m.fetchErr))
	}

	helpText := "Press q or Ctrl+C to quit"
	if m.live() {
		helpText = "Press r to refresh, q or Ctrl+C to quit"
	}
	return content + "\n" + HelpStyle.Render(helpText)
}

func (m StatusModel) fetchStatus() tea.Cmd {
	fetch := m.feed.Fetch
	return func() tea.Msg {
		status, err := fetch()
		return statusFetchedMsg{status: status, err: err}
	}
}

func statusTick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// RunStatusTUI runs the status TUI.
func RunStatusTUI(data any) error {
	model := NewStatusModel(data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatusStatic renders status data without full TUI (for fallback).
func RenderStatusStatic(data any) string {
	model := NewStatusModel(data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
