// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"log/slog"
	"strings"

	"showcase/internal/models"
	"showcase/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetRole(ctx context.Context, id uint, role models.UserRole) error
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	// Auth resolves roles through here, so a promotion must be visible on
	// the next request; replica lag would hide it.
	return first[models.User](r.db.WithContext(ctx), "User", id, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	return first[models.User](q, "User", email)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translate(err)
	}
	r.log.LogCreate(ctx, observability.ID(user.ID))
	return nil
}

func (r *userRepository) SetRole(ctx context.Context, id uint, role models.UserRole) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "set_role")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.log.LogUpdate(ctx, observability.ID(id), slog.String("role", string(role)))
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Where("role = ?", role).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	q := readDB(r.db).WithContext(ctx).Model(&models.User{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("created_at DESC").Order("id DESC").Scopes(paginate(limit, offset)).Find(&users).Error
	return users, total, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
