package tui

import (
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/agentcrew/internal/config"
)

// Save targets offered by the settings form.
const (
	SaveGlobal  = "global"
	SaveProject = "project"
)

// agentFields holds the form bindings for one assistant.
type agentFields struct {
	name     string
	provider string
	model    string
}

// SettingsModel is a standalone form that edits the configuration and saves
// it to the global or project file.
type SettingsModel struct {
	form        *huh.Form
	config      *config.Config
	globalPath  string
	projectPath string
	width       int
	height      int
	saved       bool
	savedPath   string
	cancelled   bool
	err         error

	// Form field bindings
	saveTarget     string
	agents         []*agentFields
	humanInputMode string
	useDocker      bool
}

// NewSettingsModel creates a settings form seeded from cfg.
func NewSettingsModel(cfg *config.Config, globalPath, projectPath string) *SettingsModel {
	m := &SettingsModel{
		config:         cfg,
		globalPath:     globalPath,
		projectPath:    projectPath,
		saveTarget:     SaveProject,
		humanInputMode: cfg.Conversation.HumanInputMode,
		useDocker:      cfg.Execution.UseDocker,
	}
	if m.humanInputMode == "" {
		m.humanInputMode = config.HumanInputNever
	}

	names := make([]string, 0, len(cfg.Agents))
	for name, a := range cfg.Agents {
		if !a.IsExecutor() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		a := cfg.Agents[name]
		m.agents = append(m.agents, &agentFields{name: name, provider: a.Provider, model: a.Model})
	}

	m.buildForm()
	return m
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsModel) buildForm() {
	providers := make([]string, 0, len(m.config.Providers))
	for name := range m.config.Providers {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global ("+m.globalPath+")", SaveGlobal),
					huh.NewOption("Project ("+m.projectPath+")", SaveProject),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),
	}

	for _, a := range m.agents {
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Key(a.name+".provider").
				Title("Provider").
				Options(huh.NewOptions(providers...)...).
				Value(&a.provider),

			huh.NewInput().
				Key(a.name+".model").
				Title("Model").
				Value(&a.model).
				Placeholder("gpt-3.5-turbo").
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("model is required")
					}
					return nil
				}),
		).Title("Role: "+a.name))
	}

	groups = append(groups, huh.NewGroup(
		huh.NewSelect[string]().
			Key("humanInputMode").
			Title("Ask a human when the conversation would end").
			Options(
				huh.NewOption("Never", config.HumanInputNever),
				huh.NewOption("On termination", config.HumanInputTerminate),
			).
			Value(&m.humanInputMode),

		huh.NewConfirm().
			Key("useDocker").
			Title("Run generated code in Docker").
			Value(&m.useDocker),
	).Title("Conversation"))

	m.form = huh.NewForm(groups...)
}

// Init initializes the settings form.
func (m *SettingsModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings form.
func (m *SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch msg.String() {
		case KeyEsc, KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.applyFormToConfig()

		targetPath := m.globalPath
		if m.saveTarget == SaveProject {
			targetPath = m.projectPath
		}

		if err := config.Save(m.config, targetPath); err != nil {
			m.err = err
		} else {
			m.saved = true
			m.savedPath = targetPath
		}
		return m, tea.Quit
	}

	return m, cmd
}

// applyFormToConfig copies form field values back to the config struct.
func (m *SettingsModel) applyFormToConfig() {
	for _, a := range m.agents {
		agent := m.config.Agents[a.name]
		agent.Provider = a.provider
		agent.Model = a.model
		m.config.Agents[a.name] = agent
	}
	m.config.Conversation.HumanInputMode = m.humanInputMode
	m.config.Execution.UseDocker = m.useDocker
}

// View renders the settings form.
func (m *SettingsModel) View() string {
	var content string
	switch {
	case m.saved:
		content = StyleStatusComplete.Render("✓ Settings saved to " + m.savedPath)
	case m.err != nil:
		content = StyleStatusFailed.Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	case m.cancelled:
		content = StyleStatusPending.Render("Cancelled, nothing saved")
	default:
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the form.
func (m *SettingsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil && w > 8 && h > 8 {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// Result reports whether the configuration was saved, and where.
func (m *SettingsModel) Result() (saved bool, path string, err error) {
	return m.saved, m.savedPath, m.err
}
