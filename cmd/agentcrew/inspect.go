package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/aristath/agentcrew/internal/warehouse"
)

func newInspectCmd(a *app) *cobra.Command {
	var iniPath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the databases and tables visible to the warehouse account",
		Long: `inspect connects with SNOWFLAKE_* environment variables, or with the
[SNOWFLAKE] section of an INI file when --config-ini is given, and lists every
database with its tables. A query that fails is reported and treated as empty.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			creds := warehouse.CredentialsFromEnv(a.lookupEnv)
			if iniPath != "" {
				if creds, err = warehouse.CredentialsFromINI(iniPath); err != nil {
					return err
				}
			}
			creds = creds.WithDefaults(cfg.Warehouse)
			if err := creds.Validate(); err != nil {
				return err
			}

			fmt.Fprintln(out, "Connecting to Snowflake...")
			db, err := warehouse.Open(creds)
			if err != nil {
				return fmt.Errorf("connecting to snowflake: %w", err)
			}
			defer func() {
				db.Close()
				fmt.Fprintln(out, "Connection closed.")
			}()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("connecting to snowflake: %w", err)
			}
			fmt.Fprintln(out, "Connection established.")

			insp := &warehouse.Inspector{Log: log.New(cmd.ErrOrStderr(), "", 0)}

			databases := insp.ListDatabases(ctx, db)
			fmt.Fprintln(out, "\nDatabases found:")
			for _, name := range databases {
				fmt.Fprintf(out, "- %s\n", name)
			}
			fmt.Fprintf(out, "\nTotal databases: %d\n", len(databases))

			for _, database := range databases {
				tables := insp.ListTablesInDatabase(ctx, db, database)
				if len(tables) == 0 {
					fmt.Fprintf(out, "\nNo tables found in %s\n", database)
					continue
				}
				fmt.Fprintf(out, "\nTables in %s:\n", database)
				for _, name := range tables {
					fmt.Fprintf(out, "- %s\n", name)
				}
				fmt.Fprintf(out, "\nTotal tables: %d\n", len(tables))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&iniPath, "config-ini", "", "INI file with a [SNOWFLAKE] section (default: environment)")
	return cmd
}
