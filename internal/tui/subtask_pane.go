package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskfan/taskfan/internal/events"
)

// SubtaskState tracks what the pane knows about a single subtask.
type SubtaskState struct {
	SubtaskID   string
	Description string
	Status      string // "running", "completed", "failed", "skipped", "cancelled"
	Log         []string
	StartTime   time.Time
	Duration    time.Duration
}

// SubtaskPaneModel shows the list of observed subtasks and a scrollable log
// for the selected one.
type SubtaskPaneModel struct {
	subtasks    map[string]*SubtaskState // subtaskID -> state
	order       []string                 // first-seen order for display
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewSubtaskPaneModel creates a new subtask pane model.
func NewSubtaskPaneModel() SubtaskPaneModel {
	vp := viewport.New(0, 0)
	return SubtaskPaneModel{
		subtasks: make(map[string]*SubtaskState),
		viewport: vp,
	}
}

// Update handles messages for the subtask pane.
func (m SubtaskPaneModel) Update(msg tea.Msg) (SubtaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.order)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.SubtaskStartedEvent:
		if _, exists := m.subtasks[msg.Subtask]; !exists {
			m.subtasks[msg.Subtask] = &SubtaskState{
				SubtaskID:   msg.Subtask,
				Description: msg.Description,
				Status:      "running",
				Log:         []string{fmt.Sprintf("[%s] started", msg.Timestamp.Format("15:04:05"))},
				StartTime:   msg.Timestamp,
			}
			m.order = append(m.order, msg.Subtask)
			if len(m.order) == 1 {
				m.selectedIdx = 0
			}
			m.updateViewportContent()
		}

	case events.SubtaskFinishedEvent:
		st, exists := m.subtasks[msg.Subtask]
		if !exists {
			// Skipped and cancelled subtasks never started; record them so
			// the pane shows the whole graph outcome.
			st = &SubtaskState{SubtaskID: msg.Subtask}
			m.subtasks[msg.Subtask] = st
			m.order = append(m.order, msg.Subtask)
		}
		st.Status = msg.Status
		st.Duration = msg.Duration
		if msg.Error != "" {
			st.Log = append(st.Log, fmt.Sprintf("[%s] %s: %s", msg.Timestamp.Format("15:04:05"), msg.Status, msg.Error))
		} else {
			st.Log = append(st.Log, fmt.Sprintf("[%s] %s in %v", msg.Timestamp.Format("15:04:05"), msg.Status, msg.Duration))
		}
		if m.selectedID() == msg.Subtask {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

// View renders the subtask pane.
func (m SubtaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 25
	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderList(listWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m SubtaskPaneModel) renderList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Subtasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, id := range m.order {
			st := m.subtasks[id]
			icon := StatusIcon(st.Status)
			label := st.Description
			if label == "" {
				label = st.SubtaskID
			}
			if len(label) > width-6 {
				label = label[:width-9] + "..."
			}

			line := fmt.Sprintf("%s %s", icon, label)
			if i == m.selectedIdx {
				line = lipgloss.NewStyle().
					Background(lipgloss.Color("62")).
					Foreground(lipgloss.Color("0")).
					Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator for a subtask status.
func StatusIcon(status string) string {
	switch status {
	case "running":
		return StyleStatusRunning.Render("●")
	case "completed":
		return StyleStatusCompleted.Render("✓")
	case "failed":
		return StyleStatusFailed.Render("✗")
	case "skipped":
		return StyleStatusSkipped.Render("⊘")
	case "cancelled":
		return StyleStatusCancelled.Render("–")
	default:
		return StyleStatusPending.Render("○")
	}
}

func (m SubtaskPaneModel) selectedID() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.order) {
		return m.order[m.selectedIdx]
	}
	return ""
}

func (m *SubtaskPaneModel) updateViewportContent() {
	id := m.selectedID()
	if id == "" {
		m.viewport.SetContent("Waiting for subtasks...")
		return
	}

	st, exists := m.subtasks[id]
	if !exists {
		m.viewport.SetContent("Waiting for subtasks...")
		return
	}

	header := fmt.Sprintf("%s  (%s)\n\n", st.SubtaskID, st.Status)
	m.viewport.SetContent(header + strings.Join(st.Log, "\n"))
	m.viewport.GotoBottom()
}

func (m *SubtaskPaneModel) resizeViewport() {
	listWidth := 25
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *SubtaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *SubtaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
