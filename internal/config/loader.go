package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-user and per-project configuration directory.
const DirName = ".agentcrew"

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// DefaultPaths returns the conventional config locations.
// Global: ~/.agentcrew/config.json
// Project: .agentcrew/config.json (relative to cwd)
func DefaultPaths() (globalPath, projectPath string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, "config.json"), filepath.Join(DirName, "config.json"), nil
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for key, provider := range loaded.Providers {
		base.Providers[key] = provider
	}
	for key, agent := range loaded.Agents {
		base.Agents[key] = agent
	}
	for key, workflow := range loaded.Workflows {
		base.Workflows[key] = workflow
	}

	mergeExecution(&base.Execution, loaded.Execution)
	mergeConversation(&base.Conversation, loaded.Conversation)
	mergeWarehouse(&base.Warehouse, loaded.Warehouse)

	if loaded.HistoryPath != "" {
		base.HistoryPath = loaded.HistoryPath
	}

	return nil
}

// Section merges: a non-zero field in the loaded file overrides the base value.

func mergeExecution(base *ExecutionConfig, loaded ExecutionConfig) {
	if loaded.WorkDir != "" {
		base.WorkDir = loaded.WorkDir
	}
	if loaded.UseDocker {
		base.UseDocker = true
	}
	if loaded.DockerImage != "" {
		base.DockerImage = loaded.DockerImage
	}
	if loaded.LastNMessages > 0 {
		base.LastNMessages = loaded.LastNMessages
	}
	if loaded.TimeoutSeconds > 0 {
		base.TimeoutSeconds = loaded.TimeoutSeconds
	}
	if loaded.MaxConsecutiveAutoReply > 0 {
		base.MaxConsecutiveAutoReply = loaded.MaxConsecutiveAutoReply
	}
}

func mergeConversation(base *ConversationConfig, loaded ConversationConfig) {
	if loaded.MaxRound > 0 {
		base.MaxRound = loaded.MaxRound
	}
	if loaded.TerminationSentinel != "" {
		base.TerminationSentinel = loaded.TerminationSentinel
	}
	if loaded.HumanInputMode != "" {
		base.HumanInputMode = loaded.HumanInputMode
	}
}

func mergeWarehouse(base *WarehouseConfig, loaded WarehouseConfig) {
	if loaded.Warehouse != "" {
		base.Warehouse = loaded.Warehouse
	}
	if loaded.Database != "" {
		base.Database = loaded.Database
	}
	if loaded.Schema != "" {
		base.Schema = loaded.Schema
	}
	if loaded.Table != "" {
		base.Table = loaded.Table
	}
}
