package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/agentcrew/internal/events"
)

// Conversation states shown in the progress pane.
const (
	statusWaiting  = "waiting"
	statusRunning  = "running"
	statusFinished = "finished"
	statusFailed   = "failed"
)

// ProgressPaneModel shows how far the conversation is toward its round cap.
type ProgressPaneModel struct {
	id         string
	mode       string
	status     string
	speaker    string
	messages   int
	maxRound   int
	executions int
	failedRuns int
	reason     string
	err        error
	started    time.Time
	elapsed    time.Duration
	width      int
	height     int
	focused    bool
}

// NewProgressPaneModel creates an idle pane.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{status: statusWaiting}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case events.ConversationStartedEvent:
		m.id = msg.ID
		m.mode = msg.Mode
		m.maxRound = msg.MaxRound
		m.status = statusRunning
		m.started = msg.Timestamp

	case events.SpeakerSelectedEvent:
		m.speaker = msg.Speaker

	case events.MessagePostedEvent:
		m.messages++

	case events.CodeExecutedEvent:
		m.executions++
		if msg.ExitCode != 0 {
			m.failedRuns++
		}

	case events.ConversationFinishedEvent:
		m.status = statusFinished
		m.reason = msg.Reason
		m.elapsed = msg.Duration
		m.speaker = ""

	case events.ConversationFailedEvent:
		m.status = statusFailed
		m.err = msg.Err
		m.elapsed = msg.Duration
		m.speaker = ""
	}

	return m, nil
}

// Started reports whether a conversation has begun.
func (m ProgressPaneModel) Started() bool {
	return m.status != statusWaiting
}

// Done reports whether the conversation has ended.
func (m ProgressPaneModel) Done() bool {
	return m.status == statusFinished || m.status == statusFailed
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Conversation")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Status:     %s\n", m.renderStatus()))
	if m.id != "" {
		b.WriteString(fmt.Sprintf("ID:         %s\n", m.id))
		b.WriteString(fmt.Sprintf("Mode:       %s\n", m.mode))
	}
	if m.speaker != "" {
		b.WriteString(fmt.Sprintf("Speaking:   %s\n", SpeakerStyle(m.speaker).Render(m.speaker)))
	}
	b.WriteString(fmt.Sprintf("Messages:   %d/%d\n", m.messages, m.maxRound))
	b.WriteString(fmt.Sprintf("Executions: %s", StyleStatusComplete.Render(fmt.Sprintf("%d", m.executions))))
	if m.failedRuns > 0 {
		b.WriteString(fmt.Sprintf(" (%s)", StyleStatusFailed.Render(fmt.Sprintf("%d failed", m.failedRuns))))
	}
	b.WriteString("\n")
	switch {
	case m.elapsed > 0:
		b.WriteString(fmt.Sprintf("Elapsed:    %v\n", m.elapsed.Round(time.Second)))
	case !m.started.IsZero():
		b.WriteString(fmt.Sprintf("Started:    %s\n", m.started.Format(time.Kitchen)))
	}
	if m.err != nil {
		b.WriteString(StyleStatusFailed.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")

	if m.maxRound > 0 {
		barWidth := min(m.width-14, 40)
		if barWidth > 0 {
			done := min(m.messages*barWidth/m.maxRound, barWidth)
			bar := StyleStatusComplete.Render(strings.Repeat("=", done))
			bar += StyleStatusPending.Render(strings.Repeat(".", barWidth-done))
			b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", bar, m.messages, m.maxRound))
		}
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

func (m ProgressPaneModel) renderStatus() string {
	switch m.status {
	case statusRunning:
		return StyleStatusRunning.Render(statusRunning)
	case statusFinished:
		return StyleStatusComplete.Render(fmt.Sprintf("%s (%s)", statusFinished, m.reason))
	case statusFailed:
		return StyleStatusFailed.Render(statusFailed)
	default:
		return StyleStatusPending.Render(statusWaiting)
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
