// Command admin manages users, the deadline sweep and schema migrations from
// the command line.
package main

import (
	"fmt"
	"os"

	"showcase/internal/config"
	"showcase/internal/database"
	"showcase/internal/middleware"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "showcase-admin",
	Short:         "Administrative tasks for the project showcase",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(
		promoteCmd(),
		demoteCmd(),
		listAdminsCmd(),
		issueTokenCmd(),
		sweepCmd(),
		migrateCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up logging for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	middleware.InitLogger(cfg.Env, os.Getenv("LOG_LEVEL"))
	return cfg, nil
}

// connect opens the database with the normal schema policy applied.
func connect() (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
