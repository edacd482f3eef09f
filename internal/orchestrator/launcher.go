// Package orchestrator turns a prompt into a running group conversation:
// it builds the roles, prepares the warehouse when asked to, wires the agents
// and records the transcript.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/agentcrew/internal/backend"
	"github.com/aristath/agentcrew/internal/chat"
	"github.com/aristath/agentcrew/internal/config"
	"github.com/aristath/agentcrew/internal/events"
	"github.com/aristath/agentcrew/internal/persistence"
	"github.com/aristath/agentcrew/internal/roles"
	"github.com/aristath/agentcrew/internal/sandbox"
	"github.com/aristath/agentcrew/internal/warehouse"
)

// Status banners written to the launcher's output.
const (
	BannerStarting   = "🚀 Starting workflow..."
	BannerInitiating = "📋 Initiating chat with workflow steps..."
	BannerCompleted  = "✅ Workflow completed!"
)

// Request is one conversation to run.
type Request struct {
	Prompt string // Passed through unmodified
	Mode   roles.Mode
}

// RunnerFactory creates the executor's code runner.
type RunnerFactory func(cfg sandbox.Config) chat.CodeRunner

// LauncherConfig wires a Launcher. Config and Registry are required; the
// rest have usable defaults or may be nil.
type LauncherConfig struct {
	Config   *config.Config
	Registry *roles.Registry

	NewClient ClientFactory // Defaults to NewClientFactory(Config, os.LookupEnv)
	NewRunner RunnerFactory // Defaults to sandbox.NewRunner

	// Warehouse mode only.
	Bootstrapper *warehouse.Bootstrapper
	Credentials  func() (warehouse.Credentials, error) // Defaults to SNOWFLAKE_* environment

	ProcessManager *sandbox.ProcessManager
	Bus            events.Publisher
	Store          persistence.Store
	Human          chat.HumanInput
	Out            io.Writer // Banners; defaults to io.Discard
}

// Launcher runs workflows.
type Launcher struct {
	cfg LauncherConfig
}

// NewLauncher applies defaults to cfg.
func NewLauncher(cfg LauncherConfig) *Launcher {
	if cfg.NewClient == nil {
		cfg.NewClient = NewClientFactory(cfg.Config, os.LookupEnv)
	}
	if cfg.NewRunner == nil {
		pm := cfg.ProcessManager
		cfg.NewRunner = func(c sandbox.Config) chat.CodeRunner {
			return sandbox.NewRunner(c, pm)
		}
	}
	if cfg.Credentials == nil {
		cfg.Credentials = func() (warehouse.Credentials, error) {
			return warehouse.CredentialsFromEnv(os.LookupEnv), nil
		}
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	return &Launcher{cfg: cfg}
}

// StartWorkflow runs one conversation to completion. In warehouse mode the
// warehouse is provisioned exactly once before the chat starts; a failure
// there is a *warehouse.SetupError and no chat is started. Errors from the
// conversation are returned unmodified alongside the partial transcript.
func (l *Launcher) StartWorkflow(ctx context.Context, req Request) (*chat.Transcript, error) {
	set, err := l.cfg.Registry.BuildRoles(req.Mode)
	if err != nil {
		return nil, err
	}

	var env []string
	if req.Mode == roles.ModeWarehouse {
		if env, err = l.prepareWarehouse(ctx); err != nil {
			return nil, err
		}
	}

	l.banner(BannerStarting)

	id := uuid.New().String()
	agents, closeAll, err := l.buildAgents(set, id, env)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	opening, err := RenderOpening(req.Prompt, req.Mode, set)
	if err != nil {
		return nil, err
	}

	executor, _ := set.Executor()
	gc, err := chat.NewGroupChat(agents, chat.Config{
		ID:                      id,
		Mode:                    req.Mode.String(),
		MaxRound:                l.cfg.Config.Conversation.MaxRound,
		Sentinel:                l.cfg.Config.Conversation.TerminationSentinel,
		MaxConsecutiveAutoReply: executor.Execution.MaxConsecutiveAutoReply,
		HumanInputMode:          l.cfg.Config.Conversation.HumanInputMode,
	}, l.cfg.Bus, l.cfg.Human)
	if err != nil {
		return nil, err
	}

	l.recordStart(ctx, id, req)

	l.banner(BannerInitiating)
	transcript, runErr := gc.Run(ctx, opening)

	l.recordFinish(ctx, transcript, runErr)

	if runErr != nil {
		return transcript, runErr
	}

	l.banner(BannerCompleted)
	return transcript, nil
}

// prepareWarehouse reads credentials, provisions the warehouse objects and
// returns the environment to inject into executed code.
func (l *Launcher) prepareWarehouse(ctx context.Context) ([]string, error) {
	if l.cfg.Bootstrapper == nil {
		return nil, &warehouse.SetupError{Stage: warehouse.StageValidate, Err: errors.New("no warehouse bootstrapper configured")}
	}

	creds, err := l.cfg.Credentials()
	if err != nil {
		return nil, &warehouse.SetupError{Stage: warehouse.StageValidate, Err: err}
	}
	creds = creds.WithDefaults(l.cfg.Config.Warehouse)

	if err := l.cfg.Bootstrapper.Bootstrap(ctx, creds); err != nil {
		return nil, err
	}
	return creds.Environ(), nil
}

// buildAgents instantiates agents in role order. The returned func closes
// every model client.
func (l *Launcher) buildAgents(set roles.RoleSet, conversationID string, env []string) ([]chat.Agent, func(), error) {
	var clients []backend.Backend
	closeAll := func() {
		for _, c := range clients {
			if err := c.Close(); err != nil {
				log.Printf("WARNING: closing %s client: %v", c.Provider(), err)
			}
		}
	}

	agents := make([]chat.Agent, 0, len(set))
	for _, role := range set {
		if role.CanExecute() {
			exec := role.Execution
			runner := l.cfg.NewRunner(sandbox.Config{
				WorkDir:     exec.WorkDir,
				UseDocker:   exec.UseDocker,
				DockerImage: exec.DockerImage,
				Timeout:     time.Duration(exec.TimeoutSeconds) * time.Second,
				Env:         env,
			})
			agents = append(agents, chat.NewExecutorAgent(role.Name, runner, exec.LastNMessages, l.cfg.Bus, conversationID))
			continue
		}

		client, err := l.cfg.NewClient(role)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		clients = append(clients, client)
		agents = append(agents, chat.NewAssistantAgent(role.Name, role.Instruction, role.Model, role.Temperature, client))
	}

	return agents, closeAll, nil
}

// recordStart and recordFinish write history. Failures are logged and never
// affect the conversation.
func (l *Launcher) recordStart(ctx context.Context, id string, req Request) {
	if l.cfg.Store == nil {
		return
	}
	err := l.cfg.Store.CreateConversation(ctx, persistence.Conversation{
		ID:     id,
		Prompt: req.Prompt,
		Mode:   req.Mode.String(),
	})
	if err != nil {
		log.Printf("WARNING: failed to record conversation %s: %v", id, err)
	}
}

func (l *Launcher) recordFinish(ctx context.Context, t *chat.Transcript, runErr error) {
	if l.cfg.Store == nil || t == nil {
		return
	}

	// The run context may already be cancelled; history is still written.
	storeCtx := context.WithoutCancel(ctx)

	turns := make([]persistence.Turn, len(t.Messages))
	for i, m := range t.Messages {
		turns[i] = persistence.Turn{
			Round:      m.Round,
			Speaker:    m.Speaker,
			Content:    m.Content,
			IsTerminal: m.IsTerminal,
			Timestamp:  m.Timestamp,
		}
	}
	if err := l.cfg.Store.SaveMessages(storeCtx, t.ID, turns); err != nil {
		log.Printf("WARNING: failed to save transcript %s: %v", t.ID, err)
	}

	status := persistence.StatusCompleted
	if runErr != nil {
		status = persistence.StatusFailed
	}
	if err := l.cfg.Store.FinishConversation(storeCtx, t.ID, status, t.Reason, runErr); err != nil {
		log.Printf("WARNING: failed to finish conversation %s: %v", t.ID, err)
	}
}

func (l *Launcher) banner(line string) {
	fmt.Fprintf(l.cfg.Out, "\n%s\n", line)
}
