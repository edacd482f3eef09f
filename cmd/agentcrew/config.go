package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aristath/agentcrew/internal/config"
	"github.com/aristath/agentcrew/internal/tui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage agentcrew configuration files",
	}

	var (
		global bool
		force  bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			globalPath, projectPath, err := config.DefaultPaths()
			if err != nil {
				return err
			}
			path := projectPath
			switch {
			case global:
				path = globalPath
			case a.configPath != "":
				path = a.configPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&global, "global", false, "Write ~/"+filepath.Join(config.DirName, "config.json")+" instead of the project file")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit role models and conversation settings in a form",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			globalPath, projectPath, err := config.DefaultPaths()
			if err != nil {
				return err
			}
			if a.configPath != "" {
				projectPath = a.configPath
			}

			settings := tui.NewSettingsModel(cfg, globalPath, projectPath)
			if _, err := tea.NewProgram(settings, tea.WithContext(cmd.Context())).Run(); err != nil {
				return fmt.Errorf("settings form: %w", err)
			}

			saved, path, err := settings.Result()
			if err != nil {
				return err
			}
			if saved {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, editCmd)
	return cmd
}
