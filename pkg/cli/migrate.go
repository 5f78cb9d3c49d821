package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/platinummonkey/prodhub/pkg/observability"
	"github.com/platinummonkey/prodhub/pkg/storage/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.RunMigrations(cmd.Context(), db, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
			return nil
		},
	}

	cmd.AddCommand(newMigrateStatusCommand())
	return cmd
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations that have not been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			return printMigrationStatus(cmd.Context(), db, cmd.OutOrStdout())
		},
	}
}

func printMigrationStatus(ctx context.Context, db *sql.DB, out io.Writer) error {
	pending, err := postgres.PendingMigrations(ctx, db)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		fmt.Fprintln(out, "No pending migrations")
		return nil
	}

	fmt.Fprintf(out, "%d pending migration(s):\n", len(pending))
	for _, m := range pending {
		fmt.Fprintf(out, "  %03d  %s\n", m.Version, m.Description)
	}
	return nil
}

// schemaCheck lists pending migrations for the readiness endpoint
func schemaCheck(db *sql.DB) observability.PendingMigrationsFunc {
	return func(ctx context.Context) ([]string, error) {
		pending, err := postgres.PendingMigrations(ctx, db)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(pending))
		for _, m := range pending {
			names = append(names, fmt.Sprintf("%03d %s", m.Version, m.Description))
		}
		return names, nil
	}
}
