package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sbs27/salespipe/types"
)

// ReportModel is a Bubble Tea model for the run report view.
type ReportModel struct {
	report   *types.RunReport
	width    int
	height   int
	quitting bool
}

// NewReportModel creates a new report model.
func NewReportModel(data any) ReportModel {
	m := ReportModel{}
	if report, ok := data.(*types.RunReport); ok {
		m.report = report
	}
	return m
}

// Init implements tea.Model.
func (m ReportModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m ReportModel) View() string {
	if m.quitting {
		return ""
	}
	if m.report == nil {
		return "Invalid data type for report"
	}
	report := m.report

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run Report"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Run ID", report.RunID},
		{"Source", report.Source},
		{"Outcome", report.Outcome.String()},
		{"Started At", report.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished At", report.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Duration", (time.Duration(report.DurationMs) * time.Millisecond).String()},
	}
	for _, row := range rows {
		label := LabelStyle.Render(row[0] + ":")
		value := row[1]
		if row[0] == "Outcome" {
			value = OutcomeStyle(value).Render(value)
		} else {
			value = ValueStyle.Render(value)
		}
		b.WriteString(fmt.Sprintf("%s %s\n", label, value))
	}

	if report.FallbackPath != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Fallback:"),
			WarningStyle.Render(report.FallbackPath)))
	}
	if report.Error != "" {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Error:"),
			ErrorStyle.Render(report.Error)))
	}

	b.WriteString("\n")
	boxes := []string{
		renderStatBox("Revenue", report.Summary.TotalRevenue.String(), highlightColor),
		renderStatBox("Extracted", fmt.Sprintf("%d", report.RecordsExtracted), warningColor),
		renderStatBox("Inserted", fmt.Sprintf("%d", report.RecordsInserted), successColor),
		renderStatBox("Products", fmt.Sprintf("%d", report.Summary.UniqueProducts), primaryColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	if len(report.Summary.CategoryBreakdown) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("By Category"))
		b.WriteString("\n")

		categories := make([]string, 0, len(report.Summary.CategoryBreakdown))
		for category := range report.Summary.CategoryBreakdown {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			stats := report.Summary.CategoryBreakdown[category]
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render(category+":"),
				ValueStyle.Render(fmt.Sprintf("%s (qty %d, %d records)",
					stats.Total, stats.Quantity, stats.Count))))
		}
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunReportTUI runs the report TUI.
func RunReportTUI(data any) error {
	model := NewReportModel(data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderReportStatic renders report data without full TUI (for fallback).
func RenderReportStatic(data any) string {
	model := NewReportModel(data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
