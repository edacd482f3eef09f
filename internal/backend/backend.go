package backend

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned by New when the provider has no key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrEmptyResponse is returned when a provider answers with no text content.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// Backend defines the interface that all provider adapters must implement.
type Backend interface {
	// Send requests one completion and returns the response text.
	Send(ctx context.Context, req Request) (Response, error)

	// Close releases any resources held by the adapter.
	Close() error

	// Provider returns the provider name the adapter was created for.
	Provider() string
}

// New creates a new backend based on the provided configuration.
// This factory function switches on cfg.Type and returns the appropriate adapter.
func New(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s backend: %w", cfg.Type, ErrMissingAPIKey)
	}

	switch cfg.Type {
	case "openai":
		return NewOpenAIAdapter(cfg), nil
	case "anthropic":
		return NewAnthropicAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
