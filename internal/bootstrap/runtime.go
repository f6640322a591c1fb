// Package bootstrap wires the database, Redis and startup data shared by the
// server and the admin tooling.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"showcase/internal/cache"
	"showcase/internal/config"
	"showcase/internal/database"
	"showcase/internal/models"
	"showcase/internal/repository"
	"showcase/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedCatalog bool
}

// InitRuntime connects to the database and Redis, then applies startup data.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)

	if opts.SeedCatalog {
		file, err := seed.DefaultCatalog()
		if err != nil {
			return nil, nil, err
		}
		if _, _, err := seed.Catalog(ctx, repository.NewCatalogRepository(db), file); err != nil {
			return nil, nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	if err := EnsureAdmin(ctx, repository.NewUserRepository(db), cfg.BootstrapAdminEmail); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return db, rdb, nil
}

// EnsureAdmin gives email the admin role, creating the account if needed.
// An empty email is a no-op.
func EnsureAdmin(ctx context.Context, users repository.UserRepository, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := users.GetByEmail(ctx, email)
	switch {
	case models.HasCode(err, models.CodeNotFound):
		name, _, _ := strings.Cut(email, "@")
		user = &models.User{Name: name, Email: email, Role: models.RoleAdmin}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		slog.InfoContext(ctx, "bootstrap admin created", slog.String("email", email))
		return nil
	case err != nil:
		return err
	case user.IsAdmin():
		return nil
	}

	if err := users.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return err
	}
	slog.InfoContext(ctx, "bootstrap admin promoted", slog.String("email", email))
	return nil
}
