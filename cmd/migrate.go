package cmd

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/core/database"
	"github.com/frahmantamala/account-admin/internal/core/datamodel"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
		Long: `Applies the goose migrations on PostgreSQL. SQLite databases used for
local development are migrated from the gorm models instead.`,
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	if cfg.Database.Driver == internal.DriverSQLite {
		if migrateRollback {
			return fmt.Errorf("rollback is not supported on %s", cfg.Database.Driver)
		}
		db, err := database.Open(cfg.Database)
		if err != nil {
			return err
		}
		if err := datamodel.AutoMigrate(db); err != nil {
			return err
		}
		lg.Info("sqlite schema migrated from models")
		return nil
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	lg.Info("migrations applied", "command", command, "dir", migrateDir)
	return nil
}
