package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskfan/taskfan/internal/events"
)

// ProgressPaneModel shows aggregate task progress.
type ProgressPaneModel struct {
	total      int
	pending    int
	ready      int
	running    int
	completed  int
	failed     int
	skipped    int
	cancelled  int
	progress   float64
	taskStatus string
	width      int
	height     int
	focused    bool
}

// NewProgressPaneModel creates a new progress pane model.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.TaskProgressEvent:
		m.total = msg.Total
		m.pending = msg.Pending
		m.ready = msg.Ready
		m.running = msg.Running
		m.completed = msg.Completed
		m.failed = msg.Failed
		m.skipped = msg.Skipped
		m.cancelled = msg.Cancelled
		m.progress = msg.Progress

	case events.TaskFinishedEvent:
		m.taskStatus = msg.Status
	}

	return m, nil
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Task Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Total:     %d\n", m.total))
	b.WriteString(fmt.Sprintf("Completed: %s\n", StyleStatusCompleted.Render(fmt.Sprintf("%d", m.completed))))
	b.WriteString(fmt.Sprintf("Running:   %s\n", StyleStatusRunning.Render(fmt.Sprintf("%d", m.running))))
	b.WriteString(fmt.Sprintf("Failed:    %s\n", StyleStatusFailed.Render(fmt.Sprintf("%d", m.failed))))
	b.WriteString(fmt.Sprintf("Skipped:   %s\n", StyleStatusSkipped.Render(fmt.Sprintf("%d", m.skipped))))
	b.WriteString(fmt.Sprintf("Cancelled: %s\n", StyleStatusCancelled.Render(fmt.Sprintf("%d", m.cancelled))))
	b.WriteString(fmt.Sprintf("Waiting:   %s\n", StyleStatusPending.Render(fmt.Sprintf("%d", m.pending+m.ready))))

	b.WriteString("\n")

	if m.total > 0 {
		barWidth := min(m.width-4, 40)
		doneWidth := int(m.progress * float64(barWidth))
		failedWidth := (m.failed * barWidth) / m.total
		runningWidth := (m.running * barWidth) / m.total
		restWidth := barWidth - doneWidth - failedWidth - runningWidth

		bar := StyleStatusCompleted.Render(strings.Repeat("=", max(0, doneWidth)))
		bar += StyleStatusFailed.Render(strings.Repeat("!", max(0, failedWidth)))
		bar += StyleStatusRunning.Render(strings.Repeat("-", max(0, runningWidth)))
		bar += StyleStatusPending.Render(strings.Repeat(".", max(0, restWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %.0f%%\n", bar, m.progress*100))
	}

	if m.taskStatus != "" {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Task %s", statusLabel(m.taskStatus)))
		b.WriteString("\n")
	}

	content := b.String()

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func statusLabel(status string) string {
	switch status {
	case "completed":
		return StyleStatusCompleted.Render(status)
	case "failed":
		return StyleStatusFailed.Render(status)
	case "cancelled":
		return StyleStatusCancelled.Render(status)
	default:
		return status
	}
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
