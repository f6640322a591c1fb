package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"showcase/internal/config"
	"showcase/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	// SchemaModeHybrid runs SQL migrations everywhere and AutoMigrate outside prod-like environments.
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do for a config.
type SchemaStatus struct {
	Mode               string      `json:"mode"`
	Environment        string      `json:"environment"`
	WillRunSQL         bool        `json:"will_run_sql"`
	WillRunAutoMigrate bool        `json:"will_run_auto_migrate"`
	AppliedVersions    []int       `json:"applied_versions"`
	PendingMigrations  []Migration `json:"-"`
}

// PendingNames lists pending migrations as NNNNNN_name.
func (s *SchemaStatus) PendingNames() []string {
	names := make([]string, 0, len(s.PendingMigrations))
	for i := range s.PendingMigrations {
		names = append(names, s.PendingMigrations[i].String())
	}
	return names
}

// catalogIndexes are the partial indexes behind the public catalog sorts.
// Struct tags cannot express a WHERE clause, so AutoMigrate-only databases
// get them here; both postgres and sqlite accept the syntax.
var catalogIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_projects_live_rating ON projects (avg_rating DESC, ratings_count DESC) WHERE status = 'live'",
	"CREATE INDEX IF NOT EXISTS idx_projects_live_views ON projects (view_count DESC) WHERE status = 'live'",
	"CREATE INDEX IF NOT EXISTS idx_reviews_project_status_created ON reviews (project_id, status, created_at DESC)",
}

func isProdLikeEnv(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "production" || e == "prod" || e == "staging" || e == "stage"
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	mode := normalizedSchemaMode(cfg)
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

func runAutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return err
	}
	for _, stmt := range catalogIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("catalog index: %w", err)
		}
	}
	return nil
}

// ApplySchema brings the database schema up to date according to cfg.DBSchemaMode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		mode := normalizedSchemaMode(cfg)
		if mode == SchemaModeAuto && isProdLikeEnv(cfg.Env) {
			middleware.Logger.Warn("AutoMigrate running against a prod-like database",
				slog.String("env", cfg.Env), slog.Int("models", len(PersistentModels())))
		}
		middleware.Logger.Info("Syncing showcase models", slog.String("mode", mode), slog.String("env", cfg.Env))
		if err := runAutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return nil
}

// GetSchemaStatus reports applied and pending migrations without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}

	if !runSQL {
		return status, nil
	}

	logs, err := NewMigrationStore(db).Applied(ctx)
	if err != nil {
		return nil, err
	}
	applied := appliedVersions(logs)
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
