package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"showcase/internal/config"
	"showcase/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back schema migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending SQL migrations",
			Args:  cobra.NoArgs,
			RunE: withRawDB(func(cmd *cobra.Command, _ *config.Config, db *gorm.DB, _ []string) error {
				if err := database.RunMigrations(cmd.Context(), db); err != nil {
					return fmt.Errorf("sql migrations failed: %w", err)
				}
				slog.Info("sql migrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "auto",
			Short: "Run gorm AutoMigrate over the persistent models",
			Args:  cobra.NoArgs,
			RunE: withRawDB(func(cmd *cobra.Command, cfg *config.Config, db *gorm.DB, _ []string) error {
				cfg.DBSchemaMode = database.SchemaModeAuto
				if err := database.ApplySchema(cmd.Context(), db, cfg); err != nil {
					return fmt.Errorf("auto schema apply failed: %w", err)
				}
				slog.Info("automigrations applied")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema mode and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withRawDB(func(cmd *cobra.Command, cfg *config.Config, db *gorm.DB, _ []string) error {
				status, err := database.GetSchemaStatus(cmd.Context(), db, cfg)
				if err != nil {
					return fmt.Errorf("schema status failed: %w", err)
				}
				fmt.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
					status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
					len(status.AppliedVersions), len(status.PendingMigrations))
				for _, name := range status.PendingNames() {
					fmt.Printf("pending: %s\n", name)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down <version>",
			Short: "Roll back one applied migration",
			Args:  cobra.ExactArgs(1),
			RunE: withRawDB(func(cmd *cobra.Command, _ *config.Config, db *gorm.DB, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				if err := database.RollbackMigration(cmd.Context(), db, version); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				slog.Info("migration rolled back", slog.Int("version", version))
				return nil
			}),
		},
	)
	return cmd
}

// withRawDB connects without applying the schema policy, since migration
// commands drive the schema themselves.
func withRawDB(fn func(cmd *cobra.Command, cfg *config.Config, db *gorm.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer closeDB(db)
		return fn(cmd, cfg, db, args)
	}
}
