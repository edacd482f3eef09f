package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/agentcrew/internal/persistence"
	"github.com/aristath/agentcrew/internal/tui"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	openStore := func(cmd *cobra.Command) (*persistence.SQLiteStore, error) {
		path := dbPath
		if path == "" {
			cfg, err := a.loadConfig()
			if err != nil {
				return nil, err
			}
			path = cfg.HistoryPath
		}
		if path == "" {
			return nil, newUsageError("history is disabled; pass --db or set history_path")
		}
		return persistence.NewSQLiteStore(cmd.Context(), path)
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past conversations",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			convs, err := store.ListConversations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(convs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tMODE\tSTATUS\tMESSAGES\tPROMPT")
			for _, c := range convs {
				status := c.Status
				if c.TerminationReason != "" {
					status += " (" + c.TerminationReason + ")"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					c.ID, c.CreatedAt.Local().Format(time.DateTime), c.Mode, status, c.MessageCount, summarize(c.Prompt, 50))
			}
			return w.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the transcript of a conversation",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := store.GetConversation(cmd.Context(), args[0])
			if errors.Is(err, persistence.ErrNotFound) {
				return fmt.Errorf("no conversation with id %s", args[0])
			}
			if err != nil {
				return err
			}

			turns, err := store.GetHistory(cmd.Context(), c.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", tui.StyleMeta.Render(fmt.Sprintf("conversation %s (%s) %s", c.ID, c.Mode, c.Status)))
			for _, t := range turns {
				fmt.Fprintf(out, "\n%s %s\n\n%s\n", tui.SpeakerStyle(t.Speaker).Render(t.Speaker),
					tui.StyleMeta.Render(fmt.Sprintf("(round %d)", t.Round)), t.Content)
			}
			if c.Error != "" {
				fmt.Fprintf(out, "\n%s\n", tui.StyleStatusFailed.Render("Error: "+c.Error))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Transcript database path (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum conversations to list (0 for all)")
	cmd.AddCommand(show)
	return cmd
}

// summarize returns the first line of s, cut to n runes.
func summarize(s string, n int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	r := []rune(line)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return line
}
