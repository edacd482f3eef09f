package backend

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implements Backend over the OpenAI chat completions API.
// Any OpenAI-compatible endpoint works via Config.BaseURL.
type OpenAIAdapter struct {
	name      string
	client    *openai.Client
	maxTokens int
}

// NewOpenAIAdapter creates an adapter. The API key is not validated until the first Send.
func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &OpenAIAdapter{
		name:      name,
		client:    openai.NewClientWithConfig(clientCfg),
		maxTokens: cfg.MaxTokens,
	}
}

// Send requests one chat completion.
func (a *OpenAIAdapter) Send(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Name:    m.Name,
			Content: m.Content,
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Response{}, fmt.Errorf("openai %s: %w", req.Model, ErrEmptyResponse)
	}

	return Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}

// Close is a no-op; the HTTP client holds no per-adapter resources.
func (a *OpenAIAdapter) Close() error {
	return nil
}

// Provider returns the configured provider name.
func (a *OpenAIAdapter) Provider() string {
	return a.name
}
