package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/agentcrew/internal/chat"
	"github.com/aristath/agentcrew/internal/config"
	"github.com/aristath/agentcrew/internal/events"
	"github.com/aristath/agentcrew/internal/orchestrator"
	"github.com/aristath/agentcrew/internal/persistence"
	"github.com/aristath/agentcrew/internal/roles"
	"github.com/aristath/agentcrew/internal/sandbox"
	"github.com/aristath/agentcrew/internal/tui"
	"github.com/aristath/agentcrew/internal/warehouse"
)

// app carries process-level dependencies shared by every command.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv roles.LookupEnv
	pm        *sandbox.ProcessManager

	configPath string // Project config override (--config)
}

// runOptions are the flags of the root command.
type runOptions struct {
	prompt       string
	file         string
	useSnowflake bool
	historyPath  string
	noHistory    bool
	humanInput   bool
	liveView     bool
}

func newRootCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "agentcrew",
		Short: "Run a researcher, designer and coder conversation on a prompt",
		Long: `agentcrew starts a turn-taking conversation between a code-executing
proxy and model-backed researcher, designer and coder roles. Code the coder
writes is executed locally, or against a Snowflake warehouse with --use-snowflake.`,
		Args:          noArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorkflow(cmd.Context(), opts)
		},
	}

	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	f := cmd.Flags()
	f.StringVarP(&opts.prompt, "prompt", "p", "", "Initial prompt to start the workflow")
	f.StringVarP(&opts.file, "file", "f", "", "File containing the initial prompt")
	f.BoolVar(&opts.useSnowflake, "use-snowflake", false, "Use Snowflake agent for code execution")
	f.StringVar(&opts.historyPath, "history", "", "Transcript database path (default from config)")
	f.BoolVar(&opts.noHistory, "no-history", false, "Do not record the conversation")
	f.BoolVar(&opts.humanInput, "human-input", false, "Ask for feedback when the conversation would end")
	f.BoolVar(&opts.liveView, "tui", false, "Show the conversation in a full-screen view")

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Project config file (default .agentcrew/config.json)")

	cmd.AddCommand(
		newInspectCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)

	return cmd
}

// resolvePrompt returns the prompt from exactly one of the two sources.
// The prompt text is returned unmodified.
func resolvePrompt(prompt, file string) (string, error) {
	switch {
	case prompt != "" && file != "":
		return "", newUsageError("use either --prompt or --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", newUsageError("invalid value for --file: %v", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", newUsageError("prompt file %s is empty", file)
		}
		return string(data), nil
	case strings.TrimSpace(prompt) != "":
		return prompt, nil
	default:
		return "", newUsageError("you must provide either a prompt or a file containing the prompt")
	}
}

// loadConfig reads the global config and the project config, honouring --config.
func (a *app) loadConfig() (*config.Config, error) {
	globalPath, projectPath, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	if a.configPath != "" {
		projectPath = a.configPath
	}
	return config.Load(globalPath, projectPath)
}

func (a *app) runWorkflow(ctx context.Context, opts *runOptions) error {
	prompt, err := resolvePrompt(opts.prompt, opts.file)
	if err != nil {
		return err
	}
	if opts.liveView && opts.humanInput {
		return newUsageError("--human-input cannot be combined with --tui")
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if opts.humanInput {
		cfg.Conversation.HumanInputMode = config.HumanInputTerminate
	}

	mode := roles.ModePlain
	if opts.useSnowflake {
		mode = roles.ModeWarehouse
	}

	store := a.openHistory(ctx, cfg, opts)
	if store != nil {
		defer store.Close()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewEventBus()
	sub := bus.SubscribeAll(events.DefaultBufferSize)

	var human chat.HumanInput
	if cfg.Conversation.HumanInputMode == config.HumanInputTerminate {
		hc := orchestrator.NewHumanChannel(tui.AskHuman)
		hc.Start(runCtx)
		defer hc.Stop()
		defer cancel()
		human = hc
	}

	out := a.stdout
	if opts.liveView {
		out = io.Discard
	}

	launcher := orchestrator.NewLauncher(orchestrator.LauncherConfig{
		Config:         cfg,
		Registry:       roles.NewRegistry(cfg, a.lookupEnv),
		NewClient:      orchestrator.NewClientFactory(cfg, a.lookupEnv),
		Bootstrapper:   warehouse.NewBootstrapper(cfg.Warehouse.Table, log.Default()),
		Credentials:    a.warehouseCredentials,
		ProcessManager: a.pm,
		Bus:            bus,
		Store:          store,
		Human:          human,
		Out:            out,
	})

	var (
		g          errgroup.Group
		transcript *chat.Transcript
		runErr     error
	)

	g.Go(func() error {
		defer bus.Close()
		transcript, runErr = launcher.StartWorkflow(runCtx, orchestrator.Request{Prompt: prompt, Mode: mode})
		return nil
	})

	g.Go(func() error {
		if !opts.liveView {
			return tui.NewPrinter(a.stdout).Run(ctx, sub)
		}
		p := tea.NewProgram(tui.New(sub), tea.WithAltScreen(), tea.WithContext(ctx))
		_, err := p.Run()
		// Leaving the view stops a conversation that is still running.
		cancel()
		if err != nil {
			return fmt.Errorf("live view: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if opts.liveView && transcript != nil && transcript.Completed() {
		fmt.Fprintf(a.stdout, "Conversation %s ended (%s) after %d messages\n", transcript.ID, transcript.Reason, len(transcript.Messages))
	}
	return runErr
}

// openHistory opens the transcript store. Failures disable history with a warning.
func (a *app) openHistory(ctx context.Context, cfg *config.Config, opts *runOptions) persistence.Store {
	if opts.noHistory {
		return nil
	}
	path := cfg.HistoryPath
	if opts.historyPath != "" {
		path = opts.historyPath
	}
	if path == "" {
		return nil
	}

	store, err := persistence.NewSQLiteStore(ctx, path)
	if err != nil {
		log.Printf("WARNING: history disabled, cannot open %s: %v", path, err)
		return nil
	}
	return store
}

// warehouseCredentials reads SNOWFLAKE_* variables.
func (a *app) warehouseCredentials() (warehouse.Credentials, error) {
	return warehouse.CredentialsFromEnv(a.lookupEnv), nil
}
