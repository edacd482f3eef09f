// Package tui renders conversation progress: a live Bubble Tea view, a plain
// console printer, and terminal forms for human input and settings.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/agentcrew/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTranscript PaneID = iota
	PaneProgress
	paneCount
)

// Model is the root Bubble Tea model for the live view.
type Model struct {
	transcriptPane TranscriptPaneModel
	progressPane   ProgressPaneModel
	focusedPane    PaneID
	eventSub       <-chan events.Event
	width          int
	height         int
	quitting       bool
}

// New creates a model that reads events from sub until it is closed.
func New(sub <-chan events.Event) Model {
	m := Model{
		transcriptPane: NewTranscriptPaneModel(),
		progressPane:   NewProgressPaneModel(),
		focusedPane:    PaneTranscript,
		eventSub:       sub,
	}
	m.updateFocusStates()
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// busClosedMsg is sent once the event channel is drained and closed.
type busClosedMsg struct{}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return busClosedMsg{}
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab, KeyShiftTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTranscript
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneProgress
			m.updateFocusStates()

		default:
			if m.focusedPane == PaneTranscript {
				var cmd tea.Cmd
				m.transcriptPane, cmd = m.transcriptPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case events.Event:
		var cmd tea.Cmd
		m.transcriptPane, cmd = m.transcriptPane.Update(msg)
		cmds = append(cmds, cmd)
		m.progressPane, cmd = m.progressPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case busClosedMsg:
		// The run ended before a conversation started (setup failure); there
		// is nothing to show. Otherwise keep the final view until the user quits.
		if !m.progressPane.Started() {
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		var cmd tea.Cmd
		m.transcriptPane, cmd = m.transcriptPane.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.transcriptPane.View(), m.progressPane.View())
	return lipgloss.JoinVertical(lipgloss.Left, mainContent, HelpView())
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 70) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // help bar

	m.transcriptPane.SetSize(leftWidth, availableHeight)
	m.progressPane.SetSize(rightWidth, availableHeight)
	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.transcriptPane.SetFocused(m.focusedPane == PaneTranscript)
	m.progressPane.SetFocused(m.focusedPane == PaneProgress)
}
