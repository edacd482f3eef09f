package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/agentcrew/internal/events"
)

const allRoles = "all"

// RoleState tracks one participant.
type RoleState struct {
	Name     string
	Speaking bool
	Posted   int
}

// entry is one rendered transcript line group.
type entry struct {
	speaker string // "" for executor meta lines
	text    string
}

// TranscriptPaneModel shows the role list and a scrollable transcript,
// optionally filtered to one role.
type TranscriptPaneModel struct {
	roles       map[string]*RoleState
	roleOrder   []string // allRoles first, then conversation order
	entries     []entry
	selectedIdx int
	follow      bool
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
	updateTag   int // for debouncing
}

// NewTranscriptPaneModel creates an empty pane.
func NewTranscriptPaneModel() TranscriptPaneModel {
	return TranscriptPaneModel{
		roles:     make(map[string]*RoleState),
		roleOrder: []string{allRoles},
		follow:    true,
		viewport:  viewport.New(0, 0),
	}
}

// tickMsg is used for debouncing viewport updates.
type tickMsg struct {
	tag int
}

// Update handles messages for the transcript pane.
func (m TranscriptPaneModel) Update(msg tea.Msg) (TranscriptPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.roleOrder)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		case KeyFollow:
			m.follow = !m.follow
			if m.follow {
				m.viewport.GotoBottom()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.ConversationStartedEvent:
		for _, name := range msg.Roles {
			if _, exists := m.roles[name]; !exists {
				m.roles[name] = &RoleState{Name: name}
				m.roleOrder = append(m.roleOrder, name)
			}
		}
		m.updateViewportContent()

	case events.SpeakerSelectedEvent:
		for name, r := range m.roles {
			r.Speaking = name == msg.Speaker
		}

	case events.MessagePostedEvent:
		if r, exists := m.roles[msg.Speaker]; exists {
			r.Posted++
		}
		m.entries = append(m.entries, entry{
			speaker: msg.Speaker,
			text:    fmt.Sprintf("%s %s\n%s\n", SpeakerStyle(msg.Speaker).Render(msg.Speaker), StyleMeta.Render(fmt.Sprintf("(round %d)", msg.Round)), msg.Content),
		})
		return m, m.scheduleRefresh()

	case events.CodeExecutedEvent:
		status := StyleStatusComplete.Render("succeeded")
		if msg.ExitCode != 0 {
			status = StyleStatusFailed.Render(fmt.Sprintf("failed (exit %d)", msg.ExitCode))
		}
		m.entries = append(m.entries, entry{
			text: StyleMeta.Render(fmt.Sprintf("ran %d code block(s) in %v: ", msg.Blocks, msg.Duration.Round(time.Millisecond))) + status + "\n",
		})
		return m, m.scheduleRefresh()

	case events.ConversationFinishedEvent, events.ConversationFailedEvent:
		for _, r := range m.roles {
			r.Speaking = false
		}

	case tickMsg:
		if msg.tag == m.updateTag {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

func (m *TranscriptPaneModel) scheduleRefresh() tea.Cmd {
	m.updateTag++
	tag := m.updateTag
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{tag: tag}
	})
}

// View renders the transcript pane.
func (m TranscriptPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 22
	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderRoleList(listWidth),
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

func (m TranscriptPaneModel) renderRoleList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Roles")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.roleOrder) == 1 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, name := range m.roleOrder {
			var line string
			if name == allRoles {
				line = fmt.Sprintf("  all (%d)", len(m.entries))
			} else {
				r := m.roles[name]
				line = fmt.Sprintf("%s %s (%d)", m.StatusIcon(r), truncate(name, width-8), r.Posted)
			}
			if i == m.selectedIdx {
				line = StyleSelected.Render(line)
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

// StatusIcon returns a styled indicator for a role.
func (m TranscriptPaneModel) StatusIcon(r *RoleState) string {
	switch {
	case r.Speaking:
		return StyleStatusRunning.Render("●")
	case r.Posted > 0:
		return StyleStatusComplete.Render("✓")
	default:
		return StyleStatusPending.Render("○")
	}
}

// SelectedRole returns the role filter in effect.
func (m TranscriptPaneModel) SelectedRole() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.roleOrder) {
		return m.roleOrder[m.selectedIdx]
	}
	return allRoles
}

func (m *TranscriptPaneModel) updateViewportContent() {
	filter := m.SelectedRole()

	var b strings.Builder
	for _, e := range m.entries {
		if filter != allRoles && e.speaker != filter {
			continue
		}
		b.WriteString(e.text)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		m.viewport.SetContent("Waiting for messages...")
		return
	}

	m.viewport.SetContent(b.String())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *TranscriptPaneModel) resizeViewport() {
	listWidth := 22
	viewportWidth := max(m.width-listWidth-4, 10)
	viewportHeight := max(m.height-4, 5)

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *TranscriptPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TranscriptPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
