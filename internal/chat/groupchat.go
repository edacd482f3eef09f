package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/agentcrew/internal/config"
	"github.com/aristath/agentcrew/internal/events"
)

// ErrStalled is returned when a full rotation of speakers posts nothing.
var ErrStalled = errors.New("conversation stalled: no participant replied for a full rotation")

// HumanInput is consulted when the chat would otherwise end.
type HumanInput interface {
	// Ask returns the human's reply. An empty reply, or "exit", ends the chat.
	Ask(ctx context.Context, prompt string) (string, error)
}

// HumanPrompt is shown when human input is requested.
const HumanPrompt = "Provide feedback to the group. Press enter or type 'exit' to end the conversation:"

// Config bounds a group chat.
type Config struct {
	ID                      string // Generated when empty
	Mode                    string // Label carried on events
	MaxRound                int    // Maximum messages, opening included
	Sentinel                string
	MaxConsecutiveAutoReply int    // Executor turns allowed without human input
	HumanInputMode          string // config.HumanInputNever or config.HumanInputTerminate
}

// GroupChat rotates turns between agents in a fixed order. The first agent is
// the executor: it posts the opening message and its turns are auto-replies.
type GroupChat struct {
	agents []Agent
	cfg    Config
	bus    events.Publisher
	human  HumanInput
}

// NewGroupChat validates the participants and limits.
// bus and human may be nil.
func NewGroupChat(agents []Agent, cfg Config, bus events.Publisher, human HumanInput) (*GroupChat, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("group chat needs at least one agent")
	}
	if cfg.MaxRound <= 0 {
		return nil, fmt.Errorf("max round must be positive, got %d", cfg.MaxRound)
	}
	if cfg.MaxConsecutiveAutoReply < 0 {
		return nil, fmt.Errorf("max consecutive auto reply must not be negative, got %d", cfg.MaxConsecutiveAutoReply)
	}

	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if seen[a.Name()] {
			return nil, fmt.Errorf("duplicate agent %q", a.Name())
		}
		seen[a.Name()] = true
	}

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.HumanInputMode == "" {
		cfg.HumanInputMode = config.HumanInputNever
	}

	return &GroupChat{agents: agents, cfg: cfg, bus: bus, human: human}, nil
}

// ID returns the conversation identifier.
func (g *GroupChat) ID() string {
	return g.cfg.ID
}

// Run posts opening as the executor and drives the conversation until a
// termination condition is met. On error the partial transcript is returned
// together with the agent's error, unmodified.
func (g *GroupChat) Run(ctx context.Context, opening string) (*Transcript, error) {
	started := time.Now()
	t := &Transcript{ID: g.cfg.ID}
	executor := g.agents[0].Name()

	names := make([]string, len(g.agents))
	for i, a := range g.agents {
		names[i] = a.Name()
	}
	g.publish(events.TopicConversation, events.ConversationStartedEvent{
		ID:        g.cfg.ID,
		Mode:      g.cfg.Mode,
		Roles:     names,
		MaxRound:  g.cfg.MaxRound,
		Timestamp: started,
	})

	fail := func(err error) (*Transcript, error) {
		g.publish(events.TopicConversation, events.ConversationFailedEvent{
			ID:        g.cfg.ID,
			Err:       err,
			Messages:  len(t.Messages),
			Duration:  time.Since(started),
			Timestamp: time.Now(),
		})
		return t, err
	}

	last := g.post(t, executor, opening)
	autoReplies := 0
	next := 1 % len(g.agents)
	idle := 0

	for t.Reason == "" {
		if last.IsTerminal {
			reason, resume, err := g.askHuman(ctx, t, executor, ReasonSentinel)
			if err != nil {
				return fail(err)
			}
			if !resume {
				t.Reason = reason
				break
			}
			last, autoReplies, next = t.Messages[len(t.Messages)-1], 0, 1%len(g.agents)
			continue
		}

		if len(t.Messages) >= g.cfg.MaxRound {
			t.Reason = ReasonMaxRound
			break
		}

		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		idx := next
		speaker := g.agents[idx]
		next = (next + 1) % len(g.agents)

		if idx == 0 {
			if autoReplies >= g.cfg.MaxConsecutiveAutoReply {
				reason, resume, err := g.askHuman(ctx, t, executor, ReasonMaxAutoReply)
				if err != nil {
					return fail(err)
				}
				if !resume {
					t.Reason = reason
					break
				}
				last, autoReplies, next = t.Messages[len(t.Messages)-1], 0, 1%len(g.agents)
				continue
			}
			autoReplies++
		}

		t.Rounds++
		g.publish(events.TopicConversation, events.SpeakerSelectedEvent{
			ID:        g.cfg.ID,
			Speaker:   speaker.Name(),
			Round:     len(t.Messages) + 1,
			Timestamp: time.Now(),
		})

		content, err := speaker.Reply(ctx, t.Messages)
		if err != nil {
			return fail(err)
		}
		if content == "" {
			idle++
			if idle >= len(g.agents) {
				return fail(ErrStalled)
			}
			continue
		}
		idle = 0
		last = g.post(t, speaker.Name(), content)
	}

	g.publish(events.TopicConversation, events.ConversationFinishedEvent{
		ID:        g.cfg.ID,
		Reason:    t.Reason,
		Messages:  len(t.Messages),
		Duration:  time.Since(started),
		Timestamp: time.Now(),
	})
	return t, nil
}

// askHuman consults the human when one is configured in terminate mode.
// It returns resume=true after posting the human's reply as the executor.
func (g *GroupChat) askHuman(ctx context.Context, t *Transcript, executor, reason string) (string, bool, error) {
	if g.human == nil || g.cfg.HumanInputMode != config.HumanInputTerminate {
		return reason, false, nil
	}

	answer, err := g.human.Ask(ctx, HumanPrompt)
	if err != nil {
		return "", false, fmt.Errorf("reading human input: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, "exit") {
		return ReasonHumanExit, false, nil
	}

	g.post(t, executor, answer)
	return "", true, nil
}

func (g *GroupChat) post(t *Transcript, speaker, content string) Message {
	msg := NewMessage(len(t.Messages)+1, speaker, content, g.cfg.Sentinel)
	t.Messages = append(t.Messages, msg)

	g.publish(events.TopicConversation, events.MessagePostedEvent{
		ID:         g.cfg.ID,
		Round:      msg.Round,
		Speaker:    msg.Speaker,
		Content:    msg.Content,
		IsTerminal: msg.IsTerminal,
		Timestamp:  msg.Timestamp,
	})
	return msg
}

func (g *GroupChat) publish(topic string, e events.Event) {
	if g.bus != nil {
		g.bus.Publish(topic, e)
	}
}
