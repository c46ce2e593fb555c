package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/openlibops/stacks/internal/catalog/pgstore"
	"github.com/openlibops/stacks/internal/migrate"
)

type migrationConn interface {
	migrate.TxStarter
	Close(ctx context.Context) error
}

var (
	openMigrationConn = func(ctx context.Context, url string) (migrationConn, error) {
		return pgx.Connect(ctx, url)
	}
	applyMigrations = migrate.Apply
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return CommandError{
					Message:    "migrate: database.url is not configured",
					Suggestion: "Set database.url in stacks.yaml or export STACKS_DATABASE_URL.",
					ExitCode:   2,
				}
			}

			ctx := cmd.Context()
			conn, err := openMigrationConn(ctx, cfg.Database.URL)
			if err != nil {
				return wrapError("migrate: connect database", err, "Verify the database is reachable and credentials are correct.", 1)
			}
			defer conn.Close(ctx)

			logVerbose(cmd, "applying migrations from embedded schema")
			if err := applyMigrations(ctx, conn, pgstore.Migrations); err != nil {
				return wrapError("migrate: apply migrations", err, "Inspect the migration output and database state before retrying.", 1)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrate: database is up-to-date")
			return nil
		},
	}
	return cmd
}
