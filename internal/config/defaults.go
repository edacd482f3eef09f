package config

// Role names used by the built-in workflows.
const (
	RoleExecutor       = "user_proxy"
	RoleResearcher     = "researcher"
	RoleDesigner       = "designer"
	RoleCoder          = "coder"
	RoleSnowflakeCoder = "snowflake_coder"
)

// Workflow keys, one per conversation mode.
const (
	WorkflowPlain     = "plain"
	WorkflowWarehouse = "warehouse"
)

// Built-in role instructions. Model behaviour depends on the exact wording.
const (
	ResearcherPrompt = "You are a research expert. Analyze requirements, research best practices, and ask clarifying questions when needed."

	DesignerPrompt = "You are a solution architect. Create detailed technical designs based on research findings."

	CoderPrompt = "You are a coding expert. Generate implementation code based on technical designs."

	SnowflakeCoderPrompt = `You are a coding expert who can write both general Python code and Snowflake-specific code.
For Snowflake operations, always use environment variables (SNOWFLAKE_ACCOUNT, SNOWFLAKE_USER, etc.) from the shell.
Write clear, executable code blocks with proper error handling and debugging messages.
Always print status messages to help track execution progress.`
)

// DefaultConfig returns the default configuration with built-in providers, agents, and workflows.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"openai": {
				Type:      "openai",
				APIKeyEnv: "OPENAI_API_KEY",
			},
			"anthropic": {
				Type:      "anthropic",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				MaxTokens: 4096,
			},
		},
		Agents: map[string]AgentConfig{
			RoleExecutor: {
				Kind: KindExecutor,
			},
			RoleResearcher: {
				Provider:     "openai",
				Model:        "gpt-3.5-turbo",
				Temperature:  0.7,
				SystemPrompt: ResearcherPrompt,
			},
			RoleDesigner: {
				Provider:     "openai",
				Model:        "gpt-3.5-turbo",
				Temperature:  0.7,
				SystemPrompt: DesignerPrompt,
			},
			RoleCoder: {
				Provider:     "openai",
				Model:        "gpt-3.5-turbo",
				Temperature:  0.7,
				SystemPrompt: CoderPrompt,
			},
			RoleSnowflakeCoder: {
				Provider:     "openai",
				Model:        "gpt-3.5-turbo",
				Temperature:  0.7,
				SystemPrompt: SnowflakeCoderPrompt,
			},
		},
		Workflows: map[string]WorkflowConfig{
			WorkflowPlain: {
				Steps: []WorkflowStepConfig{
					{Agent: RoleExecutor},
					{Agent: RoleResearcher},
					{Agent: RoleDesigner},
					{Agent: RoleCoder},
				},
			},
			WorkflowWarehouse: {
				Steps: []WorkflowStepConfig{
					{Agent: RoleExecutor},
					{Agent: RoleResearcher},
					{Agent: RoleDesigner},
					{Agent: RoleSnowflakeCoder},
				},
			},
		},
		Execution: ExecutionConfig{
			WorkDir:                 "workspace",
			UseDocker:               false,
			DockerImage:             "python:3-slim",
			LastNMessages:           3,
			TimeoutSeconds:          60,
			MaxConsecutiveAutoReply: 10,
		},
		Conversation: ConversationConfig{
			MaxRound:            50,
			TerminationSentinel: "TERMINATE",
			HumanInputMode:      HumanInputNever,
		},
		Warehouse: WarehouseConfig{
			Warehouse: "COMPUTE_WH",
			Database:  "AGENTCREW_DB",
			Schema:    "PUBLIC",
			Table:     "PROJECT_DATA",
		},
		HistoryPath: ".agentcrew/history.db",
	}
}
