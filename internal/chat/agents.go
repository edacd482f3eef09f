package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/agentcrew/internal/backend"
	"github.com/aristath/agentcrew/internal/events"
	"github.com/aristath/agentcrew/internal/sandbox"
)

// Agent is one conversation participant.
type Agent interface {
	Name() string

	// Reply returns the agent's next message given the full history.
	// An empty string means the agent has nothing to post this turn.
	Reply(ctx context.Context, history []Message) (string, error)
}

// AssistantAgent answers through a model provider.
type AssistantAgent struct {
	name        string
	instruction string
	model       string
	temperature float64
	client      backend.Backend
}

// NewAssistantAgent creates an assistant. instruction is sent verbatim as the system prompt.
func NewAssistantAgent(name, instruction, model string, temperature float64, client backend.Backend) *AssistantAgent {
	return &AssistantAgent{
		name:        name,
		instruction: instruction,
		model:       model,
		temperature: temperature,
		client:      client,
	}
}

func (a *AssistantAgent) Name() string { return a.name }

// Reply sends the history to the model. The agent's own turns become
// assistant messages; everyone else's become named user messages.
func (a *AssistantAgent) Reply(ctx context.Context, history []Message) (string, error) {
	msgs := make([]backend.Message, 0, len(history))
	for _, m := range history {
		if m.Speaker == a.name {
			msgs = append(msgs, backend.Message{Role: backend.RoleAssistant, Content: m.Content})
			continue
		}
		msgs = append(msgs, backend.Message{Role: backend.RoleUser, Name: m.Speaker, Content: m.Content})
	}

	resp, err := a.client.Send(ctx, backend.Request{
		System:      a.instruction,
		Messages:    msgs,
		Model:       a.model,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.name, err)
	}
	return resp.Content, nil
}

// CodeRunner executes extracted code blocks.
type CodeRunner interface {
	Run(ctx context.Context, blocks []sandbox.CodeBlock) (sandbox.Result, error)
}

// ExecutorAgent runs code found in recent messages and reports the result.
type ExecutorAgent struct {
	name           string
	runner         CodeRunner
	lastN          int
	bus            events.Publisher
	conversationID string
}

// NewExecutorAgent creates an executor that inspects the lastN most recent messages.
// bus may be nil.
func NewExecutorAgent(name string, runner CodeRunner, lastN int, bus events.Publisher, conversationID string) *ExecutorAgent {
	if lastN <= 0 {
		lastN = 1
	}
	return &ExecutorAgent{
		name:           name,
		runner:         runner,
		lastN:          lastN,
		bus:            bus,
		conversationID: conversationID,
	}
}

func (e *ExecutorAgent) Name() string { return e.name }

// Reply scans up to lastN messages, newest first, skipping its own, and runs
// the code blocks of the first message that has any. Returns "" when there
// is no code to run.
func (e *ExecutorAgent) Reply(ctx context.Context, history []Message) (string, error) {
	var blocks []sandbox.CodeBlock
	scanned := 0
	for i := len(history) - 1; i >= 0 && scanned < e.lastN; i-- {
		scanned++
		if history[i].Speaker == e.name {
			continue
		}
		if blocks = sandbox.ExtractCodeBlocks(history[i].Content); len(blocks) > 0 {
			break
		}
	}
	if len(blocks) == 0 {
		return "", nil
	}

	start := time.Now()
	result, err := e.runner.Run(ctx, blocks)
	if err != nil {
		return "", fmt.Errorf("%s: executing code: %w", e.name, err)
	}

	if e.bus != nil {
		e.bus.Publish(events.TopicExecution, events.CodeExecutedEvent{
			ID:        e.conversationID,
			Blocks:    len(blocks),
			ExitCode:  result.ExitCode,
			Duration:  time.Since(start),
			Timestamp: time.Now(),
		})
	}

	return result.String(), nil
}
