package roles

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/agentcrew/internal/config"
)

// ErrMissingCredential is wrapped by ConfigError when a provider's API key is unset.
var ErrMissingCredential = errors.New("missing model credential")

// ConfigError reports a role that cannot be constructed from the configuration.
type ConfigError struct {
	Role   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("role %q: %s: %v", e.Role, e.Reason, e.Err)
	}
	return fmt.Sprintf("role %q: %s", e.Role, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Registry builds RoleSets from a caller-owned configuration.
type Registry struct {
	cfg       *config.Config
	lookupEnv LookupEnv
}

// NewRegistry creates a registry over cfg. lookupEnv resolves API key variables.
func NewRegistry(cfg *config.Config, lookupEnv LookupEnv) *Registry {
	return &Registry{cfg: cfg, lookupEnv: lookupEnv}
}

// BuildRoles returns the ordered roles for mode. No I/O is performed beyond
// environment lookups. It fails before returning a partial set if any role
// is misconfigured or its provider credentials are absent.
func (r *Registry) BuildRoles(mode Mode) (RoleSet, error) {
	workflowKey := mode.String()
	workflow, ok := r.cfg.Workflows[workflowKey]
	if !ok || len(workflow.Steps) == 0 {
		return nil, fmt.Errorf("no workflow configured for mode %q", workflowKey)
	}

	set := make(RoleSet, 0, len(workflow.Steps))
	seen := make(map[string]bool, len(workflow.Steps))
	executors := 0

	for i, step := range workflow.Steps {
		if seen[step.Agent] {
			return nil, &ConfigError{Role: step.Agent, Reason: "appears more than once in workflow " + workflowKey}
		}
		seen[step.Agent] = true

		agent, ok := r.cfg.Agents[step.Agent]
		if !ok {
			return nil, &ConfigError{Role: step.Agent, Reason: "not defined in agents"}
		}

		if agent.IsExecutor() {
			executors++
			if i != 0 {
				return nil, &ConfigError{Role: step.Agent, Reason: "executor must be the first speaker"}
			}
			exec := r.cfg.Execution
			set = append(set, Role{
				Name:      step.Agent,
				Kind:      KindExecutor,
				Execution: &exec,
			})
			continue
		}

		role, err := r.buildAssistant(step.Agent, agent)
		if err != nil {
			return nil, err
		}
		set = append(set, role)
	}

	if executors != 1 {
		return nil, fmt.Errorf("workflow %q must contain exactly one executor, found %d", workflowKey, executors)
	}

	return set, nil
}

func (r *Registry) buildAssistant(name string, agent config.AgentConfig) (Role, error) {
	if agent.Kind != "" && agent.Kind != config.KindAssistant {
		return Role{}, &ConfigError{Role: name, Reason: fmt.Sprintf("unknown kind %q", agent.Kind)}
	}
	if agent.Model == "" {
		return Role{}, &ConfigError{Role: name, Reason: "no model configured"}
	}

	provider, ok := r.cfg.Providers[agent.Provider]
	if !ok {
		return Role{}, &ConfigError{Role: name, Reason: fmt.Sprintf("unknown provider %q", agent.Provider)}
	}

	if provider.APIKeyEnv != "" {
		key, _ := r.lookupEnv(provider.APIKeyEnv)
		if strings.TrimSpace(key) == "" {
			return Role{}, &ConfigError{
				Role:   name,
				Reason: fmt.Sprintf("%s is not set for provider %q", provider.APIKeyEnv, agent.Provider),
				Err:    ErrMissingCredential,
			}
		}
	}

	return Role{
		Name:        name,
		Kind:        KindAssistant,
		Instruction: agent.SystemPrompt,
		Provider:    agent.Provider,
		Model:       agent.Model,
		Temperature: agent.Temperature,
	}, nil
}
