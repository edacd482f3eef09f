package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestFactory(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantErr  error
		wantType string
	}{
		{"openai", Config{Type: "openai", APIKey: "sk-test"}, nil, "*backend.OpenAIAdapter"},
		{"anthropic", Config{Type: "anthropic", APIKey: "sk-ant"}, nil, "*backend.AnthropicAdapter"},
		{"missing key", Config{Type: "openai"}, ErrMissingAPIKey, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if b.Provider() != tt.cfg.Type {
				t.Errorf("Provider() = %q, want %q", b.Provider(), tt.cfg.Type)
			}
		})
	}
}

func TestFactory_UnknownType(t *testing.T) {
	_, err := New(Config{Type: "bard", APIKey: "x"})
	if err == nil {
		t.Fatal("Expected error for unknown backend type")
	}
	if !strings.Contains(err.Error(), "unknown backend type") {
		t.Errorf("Expected 'unknown backend type' error, got: %v", err)
	}
}

func TestOpenAIAdapter_Send(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-3.5-turbo-0125",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Here is the plan."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	b := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	resp, err := b.Send(context.Background(), Request{
		System:      "You are a designer.",
		Model:       "gpt-3.5-turbo",
		Temperature: 0.7,
		Messages: []Message{
			{Role: RoleUser, Name: "user_proxy", Content: "Build a thing"},
			{Role: RoleAssistant, Content: "Researching"},
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if resp.Content != "Here is the plan." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "gpt-3.5-turbo-0125" {
		t.Errorf("Model = %q", resp.Model)
	}

	if got.Model != "gpt-3.5-turbo" {
		t.Errorf("request model = %q", got.Model)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("request messages = %d, want 3", len(got.Messages))
	}
	if got.Messages[0].Role != openai.ChatMessageRoleSystem || got.Messages[0].Content != "You are a designer." {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Name != "user_proxy" || got.Messages[1].Role != openai.ChatMessageRoleUser {
		t.Errorf("user message = %+v", got.Messages[1])
	}
	if got.Messages[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("assistant message = %+v", got.Messages[2])
	}
}

func TestOpenAIAdapter_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"m","choices":[]}`))
	}))
	defer server.Close()

	b := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	_, err := b.Send(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIAdapter_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	b := NewOpenAIAdapter(Config{APIKey: "sk-bad", BaseURL: server.URL + "/v1"})
	_, err := b.Send(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *openai.APIError in chain, got %T: %v", err, err)
	}
	if apiErr.HTTPStatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.HTTPStatusCode)
	}
}

type anthropicRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestAnthropicAdapter_Send(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if key := r.Header.Get("X-Api-Key"); key != "sk-ant" {
			t.Errorf("unexpected X-Api-Key %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-latest",
			"content":[{"type":"text","text":"Design ready."}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":3}}`))
	}))
	defer server.Close()

	b := NewAnthropicAdapter(Config{APIKey: "sk-ant", BaseURL: server.URL})
	resp, err := b.Send(context.Background(), Request{
		System: "You are a designer.",
		Model:  "claude-3-5-sonnet-latest",
		Messages: []Message{
			{Role: RoleUser, Name: "user_proxy", Content: "Build a thing"},
			{Role: RoleUser, Name: "researcher", Content: "Findings"},
			{Role: RoleAssistant, Content: "Earlier design"},
		},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp.Content != "Design ready." {
		t.Errorf("Content = %q", resp.Content)
	}

	if got.MaxTokens != defaultAnthropicMaxTokens {
		t.Errorf("max_tokens = %d, want %d", got.MaxTokens, defaultAnthropicMaxTokens)
	}
	if len(got.System) != 1 || got.System[0].Text != "You are a designer." {
		t.Errorf("system = %+v", got.System)
	}
	// Consecutive user turns are merged
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[1].Role != "assistant" {
		t.Errorf("roles = %s, %s", got.Messages[0].Role, got.Messages[1].Role)
	}
	text := got.Messages[0].Content[0].Text
	if !strings.Contains(text, "user_proxy: Build a thing") || !strings.Contains(text, "researcher: Findings") {
		t.Errorf("merged user turn = %q", text)
	}
}

func TestAnthropicAdapter_NoTextContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer server.Close()

	b := NewAnthropicAdapter(Config{APIKey: "sk-ant", BaseURL: server.URL})
	_, err := b.Send(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestToAnthropicMessages_Alternates(t *testing.T) {
	msgs := toAnthropicMessages([]Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleAssistant, Content: "c"},
		{Role: RoleUser, Content: "d"},
	})
	if len(msgs) != 3 {
		t.Fatalf("turns = %d, want 3", len(msgs))
	}
	wantRoles := []string{"user", "assistant", "user"}
	for i, m := range msgs {
		if string(m.Role) != wantRoles[i] {
			t.Errorf("turn %d role = %s, want %s", i, m.Role, wantRoles[i])
		}
	}
}
