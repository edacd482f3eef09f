// Package roles builds the ordered set of conversation participants for a run.
package roles

import (
	"fmt"
	"strings"

	"github.com/aristath/agentcrew/internal/config"
)

// Mode selects which workflow the conversation uses.
type Mode int

const (
	ModePlain     Mode = iota // executor, researcher, designer, coder
	ModeWarehouse             // executor, researcher, designer, warehouse-aware coder
)

// String returns the workflow key for the mode.
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return config.WorkflowPlain
	case ModeWarehouse:
		return config.WorkflowWarehouse
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a workflow key back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.WorkflowPlain:
		return ModePlain, nil
	case config.WorkflowWarehouse:
		return ModeWarehouse, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// Kind distinguishes the code-running executor from model-backed assistants.
type Kind string

const (
	KindExecutor  Kind = config.KindExecutor
	KindAssistant Kind = config.KindAssistant
)

// Role is one named participant. Roles are plain values; copies never alias.
type Role struct {
	Name        string
	Kind        Kind
	Instruction string
	Provider    string
	Model       string
	Temperature float64

	// Execution is set on the executor only.
	Execution *config.ExecutionConfig
}

// CanExecute reports whether the role runs generated code.
func (r Role) CanExecute() bool {
	return r.Kind == KindExecutor && r.Execution != nil
}

// RoleSet is the ordered list of participants. Order is the hand-off sequence.
type RoleSet []Role

// Executor returns the executor role, which is always first in a valid set.
func (s RoleSet) Executor() (Role, bool) {
	for _, r := range s {
		if r.Kind == KindExecutor {
			return r, true
		}
	}
	return Role{}, false
}

// Get looks up a role by name.
func (s RoleSet) Get(name string) (Role, bool) {
	for _, r := range s {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// Names returns role names in order.
func (s RoleSet) Names() []string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = r.Name
	}
	return names
}

// Assistants returns the model-backed roles in order.
func (s RoleSet) Assistants() []Role {
	var out []Role
	for _, r := range s {
		if r.Kind == KindAssistant {
			out = append(out, r)
		}
	}
	return out
}
