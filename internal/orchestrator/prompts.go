package orchestrator

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aristath/agentcrew/internal/config"
	"github.com/aristath/agentcrew/internal/roles"
)

// openingTemplate is the executor's first message. The prompt is embedded as-is.
var openingTemplate = template.Must(template.New("opening").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(`
Project Request: {{.Prompt}}

Please follow this workflow:
{{range $i, $s := .Steps}}{{inc $i}}. {{$s.Title}}: {{$s.Task}}
{{range $s.Notes}}   - {{.}}
{{end}}{{end}}
Each agent should wait for the previous agent to complete their task.
Print clear status messages during execution.
`))

type workflowStep struct {
	Title string
	Task  string
	Notes []string
}

// stepFor describes a role's responsibility in the opening message.
func stepFor(role roles.Role, mode roles.Mode) workflowStep {
	switch role.Name {
	case config.RoleResearcher:
		return workflowStep{Title: "Researcher", Task: "Analyze requirements and research best practices"}
	case config.RoleDesigner:
		return workflowStep{Title: "Designer", Task: "Create technical design based on research"}
	case config.RoleCoder, config.RoleSnowflakeCoder:
		var notes []string
		if mode == roles.ModeWarehouse {
			notes = append(notes, "For Snowflake operations, use environment variables")
		}
		notes = append(notes, "Include status messages and error handling", "Test the code execution")
		return workflowStep{Title: "Coder", Task: "Generate and execute implementation code", Notes: notes}
	default:
		return workflowStep{Title: titleCase(role.Name), Task: "Contribute your expertise to the request"}
	}
}

// RenderOpening builds the opening message for set, listing assistant roles in order.
func RenderOpening(prompt string, mode roles.Mode, set roles.RoleSet) (string, error) {
	assistants := set.Assistants()
	steps := make([]workflowStep, 0, len(assistants))
	for _, r := range assistants {
		steps = append(steps, stepFor(r, mode))
	}

	var b strings.Builder
	err := openingTemplate.Execute(&b, struct {
		Prompt string
		Steps  []workflowStep
	}{Prompt: prompt, Steps: steps})
	if err != nil {
		return "", fmt.Errorf("rendering opening message: %w", err)
	}
	return b.String(), nil
}

func titleCase(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
