package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sbs27/salespipe/types"
)

// previewRows caps how many records the snapshot view lists.
const previewRows = 10

// SnapshotView is the data payload for the snapshot view: a decoded
// snapshot header plus its records.
type SnapshotView struct {
	Path    string
	Header  *types.SnapshotHeader
	Records []types.Record
}

// SnapshotModel is a Bubble Tea model for the snapshot view.
type SnapshotModel struct {
	snap     *SnapshotView
	width    int
	height   int
	quitting bool
}

// NewSnapshotModel creates a new snapshot model.
func NewSnapshotModel(data any) SnapshotModel {
	m := SnapshotModel{}
	if snap, ok := data.(*SnapshotView); ok && snap.Header != nil {
		m.snap = snap
	}
	return m
}

// Init implements tea.Model.
func (m SnapshotModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SnapshotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
func (m SnapshotModel) View() string {
	if m.quitting {
		return ""
	}
	if m.snap == nil {
		return "Invalid data type for snapshot"
	}
	header := m.snap.Header

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Snapshot"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Run ID", header.RunID},
		{"Source", header.Source},
		{"Format", header.FormatVersion},
		{"Created At", header.CreatedAt},
		{"Records", fmt.Sprintf("%d", header.RecordCount)},
		{"Batches", fmt.Sprintf("%d", header.BatchCount)},
	}
	if m.snap.Path != "" {
		rows = append(rows, []string{"Path", m.snap.Path})
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render(row[0]+":"),
			ValueStyle.Render(row[1])))
	}

	if len(m.snap.Records) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Records"))
		b.WriteString("\n")

		shown := m.snap.Records
		if len(shown) > previewRows {
			shown = shown[:previewRows]
		}
		for _, record := range shown {
			line := fmt.Sprintf("%-12s %-20s %-14s %10s",
				record.Date, record.Product, record.Category, record.Total)
			b.WriteString("  " + ValueStyle.Render(line) + "\n")
		}
		if remaining := len(m.snap.Records) - len(shown); remaining > 0 {
			b.WriteString(HelpStyle.Render(fmt.Sprintf("  … and %d more", remaining)))
			b.WriteString("\n")
		}
	}

	content := BoxStyle.Render(b.String())
	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

// RunSnapshotTUI runs the snapshot TUI.
func RunSnapshotTUI(data any) error {
	model := NewSnapshotModel(data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderSnapshotStatic renders snapshot data without full TUI (for fallback).
func RenderSnapshotStatic(data any) string {
	model := NewSnapshotModel(data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
