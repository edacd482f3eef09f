package orchestrator

import (
	"fmt"
	"strings"

	"github.com/aristath/agentcrew/internal/backend"
	"github.com/aristath/agentcrew/internal/config"
	"github.com/aristath/agentcrew/internal/roles"
)

// ClientFactory creates the model client for an assistant role.
type ClientFactory func(role roles.Role) (backend.Backend, error)

// NewClientFactory maps a role's provider config to a backend wrapped with
// rate limiting, the provider's circuit breaker and opt-in retries.
// Breakers are shared by every client created from the same factory.
func NewClientFactory(cfg *config.Config, lookupEnv roles.LookupEnv) ClientFactory {
	breakers := backend.NewCircuitBreakerRegistry()

	return func(role roles.Role) (backend.Backend, error) {
		provider, ok := cfg.Providers[role.Provider]
		if !ok {
			return nil, fmt.Errorf("role %q: unknown provider %q", role.Name, role.Provider)
		}

		var apiKey string
		if provider.APIKeyEnv != "" {
			v, _ := lookupEnv(provider.APIKeyEnv)
			apiKey = strings.TrimSpace(v)
		}

		client, err := backend.New(backend.Config{
			Type:      provider.Type,
			Name:      role.Provider,
			APIKey:    apiKey,
			BaseURL:   provider.BaseURL,
			MaxTokens: provider.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", role.Name, err)
		}

		retry := backend.DefaultRetryConfig()
		retry.MaxRetries = provider.MaxRetries
		return backend.NewResilient(client, breakers, provider.RequestsPerMinute, retry), nil
	}
}
