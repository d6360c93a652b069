package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

const migrationTable = "schema_migrations"

var (
	migrateCmd = &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply the credential store migrations under db/migrations",
		Long:      `Manages the portal_credentials table used when session.token_store is postgres. Defaults to up.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE:      runMigration,
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "shorthand for migrate down")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func migrationCommand(args []string) string {
	switch {
	case len(args) == 1:
		return args[0]
	case migrateRollback:
		return "down"
	default:
		return "up"
	}
}

func runMigration(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Source == "" {
		return errors.New("migrate: database.source is not configured")
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: open database: %w", err)
	}
	defer db.Close()
	goose.SetTableName(migrationTable)

	command := migrationCommand(args)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
