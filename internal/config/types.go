package config

// ProviderConfig defines a model provider (API family, credentials env var, limits).
// Providers are separate from agents -- multiple agents can share one provider.
type ProviderConfig struct {
	Type              string `json:"type"`                          // Backend type matching backend.Config.Type: "openai", "anthropic"
	APIKeyEnv         string `json:"api_key_env"`                   // Environment variable holding the API key
	BaseURL           string `json:"base_url,omitempty"`            // Optional API endpoint override
	MaxTokens         int    `json:"max_tokens,omitempty"`          // Completion token cap (required by anthropic)
	RequestsPerMinute int    `json:"requests_per_minute,omitempty"` // 0 = unlimited
	MaxRetries        int    `json:"max_retries,omitempty"`         // 0 = single attempt
}

// Agent kinds.
const (
	KindAssistant = "assistant"
	KindExecutor  = "executor"
)

// AgentConfig defines a role that uses a specific provider and model.
type AgentConfig struct {
	Kind         string  `json:"kind,omitempty"`          // "assistant" (default) or "executor"
	Provider     string  `json:"provider,omitempty"`      // Key into Providers map
	Model        string  `json:"model,omitempty"`         // Model identifier (e.g., "gpt-3.5-turbo")
	Temperature  float64 `json:"temperature,omitempty"`   // Sampling temperature
	SystemPrompt string  `json:"system_prompt,omitempty"` // Role-specific system prompt
}

// IsExecutor reports whether the agent runs code instead of calling a model.
func (a AgentConfig) IsExecutor() bool {
	return a.Kind == KindExecutor
}

// WorkflowStepConfig defines one step in a workflow pipeline.
type WorkflowStepConfig struct {
	Agent string `json:"agent"` // Key into Agents map
}

// WorkflowConfig defines the ordered speakers of a conversation (e.g., research -> design -> code).
type WorkflowConfig struct {
	Steps []WorkflowStepConfig `json:"steps"`
}

// ExecutionConfig controls how the executor runs generated code.
type ExecutionConfig struct {
	WorkDir                 string `json:"work_dir,omitempty"`
	UseDocker               bool   `json:"use_docker,omitempty"`
	DockerImage             string `json:"docker_image,omitempty"`
	LastNMessages           int    `json:"last_n_messages,omitempty"`
	TimeoutSeconds          int    `json:"timeout_seconds,omitempty"`
	MaxConsecutiveAutoReply int    `json:"max_consecutive_auto_reply,omitempty"`
}

// Human input modes.
const (
	HumanInputNever     = "never"
	HumanInputTerminate = "terminate"
)

// ConversationConfig bounds the group chat.
type ConversationConfig struct {
	MaxRound            int    `json:"max_round,omitempty"`
	TerminationSentinel string `json:"termination_sentinel,omitempty"`
	HumanInputMode      string `json:"human_input_mode,omitempty"`
}

// WarehouseConfig names the objects provisioned by the warehouse bootstrap.
// Credentials are never stored here; they come from the environment or an INI file.
type WarehouseConfig struct {
	Warehouse string `json:"warehouse,omitempty"` // Fallback when SNOWFLAKE_WAREHOUSE is unset
	Database  string `json:"database,omitempty"`  // Fallback when SNOWFLAKE_DATABASE is unset
	Schema    string `json:"schema,omitempty"`    // Fallback when SNOWFLAKE_SCHEMA is unset
	Table     string `json:"table,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Providers    map[string]ProviderConfig `json:"providers"`
	Agents       map[string]AgentConfig    `json:"agents"`
	Workflows    map[string]WorkflowConfig `json:"workflows"`
	Execution    ExecutionConfig           `json:"execution"`
	Conversation ConversationConfig        `json:"conversation"`
	Warehouse    WarehouseConfig           `json:"warehouse"`
	HistoryPath  string                    `json:"history_path,omitempty"` // SQLite transcript store ("" disables)
}
