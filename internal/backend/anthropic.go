package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultAnthropicMaxTokens is used when the provider config leaves MaxTokens unset.
// The Messages API requires an explicit cap.
const defaultAnthropicMaxTokens = 4096

// AnthropicAdapter implements Backend over the Anthropic Messages API.
type AnthropicAdapter struct {
	name      string
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropicAdapter creates an adapter.
func NewAnthropicAdapter(cfg Config) *AnthropicAdapter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicAdapter{
		name:      name,
		client:    anthropic.NewClient(opts...),
		maxTokens: maxTokens,
	}
}

// Send requests one message completion.
func (a *AnthropicAdapter) Send(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   a.maxTokens,
		Messages:    toAnthropicMessages(req.Messages),
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return Response{}, fmt.Errorf("anthropic %s: %w", req.Model, ErrEmptyResponse)
	}

	return Response{
		Content: sb.String(),
		Model:   string(msg.Model),
	}, nil
}

// Close is a no-op.
func (a *AnthropicAdapter) Close() error {
	return nil
}

// Provider returns the configured provider name.
func (a *AnthropicAdapter) Provider() string {
	return a.name
}

// toAnthropicMessages converts history into alternating user/assistant turns.
// The API rejects consecutive turns from the same role, so they are merged;
// speaker names are folded into the text since the API has no name field.
func toAnthropicMessages(history []Message) []anthropic.MessageParam {
	type turn struct {
		role  string
		parts []string
	}

	var turns []turn
	for _, m := range history {
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}

		text := m.Content
		if m.Name != "" && role == RoleUser {
			text = m.Name + ": " + text
		}

		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].parts = append(turns[n-1].parts, text)
			continue
		}
		turns = append(turns, turn{role: role, parts: []string{text}})
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.parts, "\n\n"))
		if t.role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
